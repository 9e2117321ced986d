package element

import (
	"context"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// Descriptor describes an element type. Create receives the merged settings
// (defaults plus user values, never nil) and the element under construction,
// which the instance uses to create pads and tasks.
type Descriptor interface {
	ID() string
	Kind() object.Kind
	DisplayName() string
	Create(s *settings.Data, el *Element) (Instance, error)
}

// Instance is the type-private state of one element. Destroy runs once,
// after every task of the element has stopped.
type Instance interface {
	Destroy()
}

// DefaultsProvider fills the default layer of a settings container
type DefaultsProvider interface {
	Defaults(s *settings.Data)
}

// TypePropertiesProvider describes the settings of a type without an instance
type TypePropertiesProvider interface {
	TypeProperties() *properties.Properties
}

// Updater applies changed settings to a live instance
type Updater interface {
	Update(s *settings.Data)
}

// PropertiesProvider describes the settings of a live instance
type PropertiesProvider interface {
	Properties() *properties.Properties
}

// PadRequester creates pads on demand. The returned pad must come from
// Element.NewPad.
type PadRequester interface {
	RequestPad(name string, dir pad.Direction, caps *pad.Caps) (*pad.Pad, error)
}

// Producer returns the next buffer of a source. A nil buffer with FlowOK
// means nothing was produced this iteration. Produce must return promptly
// once ctx is done.
type Producer interface {
	Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn)
}

// Activator is notified when the element's pads are activated or deactivated
type Activator interface {
	Activate()
	Deactivate()
}

// Starter acquires and releases external resources around the element's
// running period
type Starter interface {
	Start(ctx context.Context) error
	Stop()
}

// Saver writes private state into the saved settings
type Saver interface {
	Save(s *settings.Data)
}

// Loader restores private state from saved settings
type Loader interface {
	Load(s *settings.Data)
}

// TypeInfo is the introspection record of a registered type
type TypeInfo struct {
	ID            string      `json:"id"`
	Kind          object.Kind `json:"kind"`
	DisplayName   string      `json:"display_name"`
	HasDefaults   bool        `json:"has_defaults"`
	HasProperties bool        `json:"has_properties"`
}

func infoOf(d Descriptor) TypeInfo {
	_, defaults := d.(DefaultsProvider)
	_, props := d.(TypePropertiesProvider)
	if t, ok := d.(*Type); ok {
		defaults, props = t.Fill != nil, t.Props != nil
	}
	return TypeInfo{
		ID:            d.ID(),
		Kind:          d.Kind(),
		DisplayName:   d.DisplayName(),
		HasDefaults:   defaults,
		HasProperties: props,
	}
}

// Type is a Descriptor assembled from values, for element types that need
// no descriptor state of their own
type Type struct {
	TypeID   string
	TypeKind object.Kind
	Name     string
	New      func(s *settings.Data, el *Element) (Instance, error)
	Fill     func(s *settings.Data)
	Props    func() *properties.Properties
}

// ID returns the type identifier
func (t *Type) ID() string { return t.TypeID }

// Kind returns the element kind
func (t *Type) Kind() object.Kind { return t.TypeKind }

// DisplayName returns the human readable name, defaulting to the id
func (t *Type) DisplayName() string {
	if t.Name == "" {
		return t.TypeID
	}
	return t.Name
}

// Create calls New
func (t *Type) Create(s *settings.Data, el *Element) (Instance, error) {
	return t.New(s, el)
}

// Defaults calls Fill when set
func (t *Type) Defaults(s *settings.Data) {
	if t.Fill != nil {
		t.Fill(s)
	}
}

// TypeProperties calls Props when set
func (t *Type) TypeProperties() *properties.Properties {
	if t.Props == nil {
		return nil
	}
	return t.Props()
}
