package properties

import (
	"encoding/json"
	"sync"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// Properties is an ordered list of property descriptions. Names are unique
// across the list and its nested groups.
type Properties struct {
	mu     sync.RWMutex
	props  []*Property
	flags  Flags
	parent *Property
}

// New creates an empty property list
func New() *Properties {
	return &Properties{}
}

// Flags returns the list flags
func (ps *Properties) Flags() Flags {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.flags
}

// SetFlags replaces the list flags
func (ps *Properties) SetFlags(f Flags) {
	ps.mu.Lock()
	ps.flags = f
	ps.mu.Unlock()
}

// Parent returns the group property holding this list, or nil at the top
func (ps *Properties) Parent() *Property { return ps.parent }

// Len returns the number of top-level properties
func (ps *Properties) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.props)
}

// Get looks a property up by name, descending into groups
func (ps *Properties) Get(name string) *Property {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, p := range ps.props {
		if p.name == name {
			return p
		}
		if p.typ == TypeGroup && p.groupContent != nil {
			if found := p.groupContent.Get(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Remove deletes the named property, descending into groups. It reports
// whether a property was removed.
func (ps *Properties) Remove(name string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for i, p := range ps.props {
		if p.name == name {
			ps.props = append(ps.props[:i], ps.props[i+1:]...)
			return true
		}
		if p.typ == TypeGroup && p.groupContent != nil && p.groupContent.Remove(name) {
			return true
		}
	}
	return false
}

// All returns the top-level properties in insertion order
func (ps *Properties) All() []*Property {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]*Property, len(ps.props))
	copy(out, ps.props)
	return out
}

// Each calls fn for the top-level properties in order until fn returns false
func (ps *Properties) Each(fn func(p *Property) bool) {
	for _, p := range ps.All() {
		if !fn(p) {
			return
		}
	}
}

// root walks up through group parents to the top-level list
func (ps *Properties) root() *Properties {
	top := ps
	for top.parent != nil && top.parent.parent != nil {
		top = top.parent.parent
	}
	return top
}

func (ps *Properties) add(p *Property) *Property {
	if ps.root().Get(p.name) != nil {
		return nil
	}
	p.parent = ps
	ps.mu.Lock()
	ps.props = append(ps.props, p)
	ps.mu.Unlock()
	return p
}

// AddBool adds a checkbox. It returns nil when the name is taken.
func (ps *Properties) AddBool(name, description string) *Property {
	return ps.add(newProperty(name, description, TypeBool))
}

func (ps *Properties) addNumber(name, description string, t Type, min, max, step float64, nt NumberType) *Property {
	p := newProperty(name, description, t)
	p.min, p.max, p.step = min, max, step
	p.numberType = nt
	return ps.add(p)
}

// AddInt adds a bounded integer scroller
func (ps *Properties) AddInt(name, description string, min, max, step int64) *Property {
	return ps.addNumber(name, description, TypeInt, float64(min), float64(max), float64(step), NumberScroller)
}

// AddIntSlider adds a bounded integer slider
func (ps *Properties) AddIntSlider(name, description string, min, max, step int64) *Property {
	return ps.addNumber(name, description, TypeInt, float64(min), float64(max), float64(step), NumberSlider)
}

// AddFloat adds a bounded float scroller
func (ps *Properties) AddFloat(name, description string, min, max, step float64) *Property {
	return ps.addNumber(name, description, TypeFloat, min, max, step, NumberScroller)
}

// AddFloatSlider adds a bounded float slider
func (ps *Properties) AddFloatSlider(name, description string, min, max, step float64) *Property {
	return ps.addNumber(name, description, TypeFloat, min, max, step, NumberSlider)
}

// AddText adds a text field
func (ps *Properties) AddText(name, description string, t TextType) *Property {
	p := newProperty(name, description, TypeText)
	p.textType = t
	return ps.add(p)
}

// AddPath adds a file or directory chooser
func (ps *Properties) AddPath(name, description string, t PathType, filter, defaultPath string) *Property {
	p := newProperty(name, description, TypePath)
	p.pathType = t
	p.filter = filter
	p.defaultPath = defaultPath
	return ps.add(p)
}

// AddList adds a selection list. Items are added on the returned property.
func (ps *Properties) AddList(name, description string, t ComboType, format ComboFormat) *Property {
	if format == ComboFormatInvalid {
		return nil
	}
	p := newProperty(name, description, TypeList)
	p.comboType = t
	p.comboFormat = format
	return ps.add(p)
}

// AddColor adds a color picker
func (ps *Properties) AddColor(name, description string) *Property {
	return ps.add(newProperty(name, description, TypeColor))
}

// AddColorAlpha adds a color picker with an alpha channel
func (ps *Properties) AddColorAlpha(name, description string) *Property {
	return ps.add(newProperty(name, description, TypeColorAlpha))
}

// AddButton adds a push button
func (ps *Properties) AddButton(name, text string, h ButtonHandler) *Property {
	p := newProperty(name, text, TypeButton)
	p.clicked = h
	return ps.add(p)
}

// AddFont adds a font chooser
func (ps *Properties) AddFont(name, description string) *Property {
	return ps.add(newProperty(name, description, TypeFont))
}

// AddEditableList adds a user-editable list of strings, files or URLs
func (ps *Properties) AddEditableList(name, description string, t EditableListType, filter, defaultPath string) *Property {
	p := newProperty(name, description, TypeEditableList)
	p.editListType = t
	p.filter = filter
	p.defaultPath = defaultPath
	return ps.add(p)
}

// AddGroup nests content under a group. A group cannot contain the list it
// is added to, and every name in content must be unused.
func (ps *Properties) AddGroup(name, description string, t GroupType, content *Properties) *Property {
	if t == GroupInvalid || content == nil || content == ps || content.parent != nil {
		return nil
	}
	top := ps.root()
	if top.Get(name) != nil {
		return nil
	}
	for _, c := range content.All() {
		if top.Get(c.name) != nil {
			return nil
		}
	}
	p := newProperty(name, description, TypeGroup)
	p.groupType = t
	p.groupContent = content
	if ps.add(p) == nil {
		return nil
	}
	content.parent = p
	return p
}

// Apply runs the modified handlers of properties set by the user in s.
// It returns true when any handler asked for the list to be presented again.
func (ps *Properties) Apply(s *settings.Data) bool {
	if s == nil {
		return false
	}
	refresh := false
	for _, p := range ps.All() {
		if p.modified != nil && s.HasUserValue(p.name) {
			if p.modified.Modified(ps, p, s) {
				refresh = true
			}
		}
		if p.typ == TypeGroup && p.groupContent != nil && p.groupContent.Apply(s) {
			refresh = true
		}
	}
	return refresh
}

type propertyJSON struct {
	Name            string      `json:"name"`
	Type            Type        `json:"type"`
	Description     string      `json:"description,omitempty"`
	LongDescription string      `json:"long_description,omitempty"`
	Visible         bool        `json:"visible"`
	Enabled         bool        `json:"enabled"`
	Min             *float64    `json:"min,omitempty"`
	Max             *float64    `json:"max,omitempty"`
	Step            *float64    `json:"step,omitempty"`
	Slider          bool        `json:"slider,omitempty"`
	Suffix          string      `json:"suffix,omitempty"`
	TextType        *TextType   `json:"text_type,omitempty"`
	Monospace       bool        `json:"monospace,omitempty"`
	PathType        *PathType   `json:"path_type,omitempty"`
	Filter          string      `json:"filter,omitempty"`
	DefaultPath     string      `json:"default_path,omitempty"`
	ComboType       ComboType   `json:"combo_type,omitempty"`
	ComboFormat     ComboFormat `json:"combo_format,omitempty"`
	Items           []Item      `json:"items,omitempty"`
	GroupType       GroupType   `json:"group_type,omitempty"`
	Content         *Properties `json:"content,omitempty"`
	URL             string      `json:"url,omitempty"`
}

// MarshalJSON encodes the property for presentation layers
func (p *Property) MarshalJSON() ([]byte, error) {
	out := propertyJSON{
		Name:            p.name,
		Type:            p.typ,
		Description:     p.description,
		LongDescription: p.longDesc,
		Visible:         p.visible,
		Enabled:         p.enabled,
	}
	switch p.typ {
	case TypeInt, TypeFloat:
		out.Min, out.Max, out.Step = &p.min, &p.max, &p.step
		out.Slider = p.numberType == NumberSlider
		out.Suffix = p.suffix
	case TypeText:
		out.TextType = &p.textType
		out.Monospace = p.monospace
	case TypePath, TypeEditableList:
		if p.typ == TypePath {
			out.PathType = &p.pathType
		}
		out.Filter = p.filter
		out.DefaultPath = p.defaultPath
	case TypeList:
		out.ComboType = p.comboType
		out.ComboFormat = p.comboFormat
		out.Items = p.Items()
	case TypeGroup:
		out.GroupType = p.groupType
		out.Content = p.groupContent
	case TypeButton:
		out.URL = p.url
	}
	return json.Marshal(out)
}

// MarshalJSON encodes the list in order
func (ps *Properties) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DeferUpdate bool        `json:"defer_update,omitempty"`
		Properties  []*Property `json:"properties"`
	}{
		DeferUpdate: ps.Flags()&DeferUpdate != 0,
		Properties:  ps.All(),
	})
}
