package properties

import (
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// ModifiedHandler runs when the value of a property changes. It returns
// true when the property list changed and must be presented again.
type ModifiedHandler interface {
	Modified(props *Properties, p *Property, s *settings.Data) bool
}

// ModifiedFunc adapts a function to ModifiedHandler
type ModifiedFunc func(props *Properties, p *Property, s *settings.Data) bool

// Modified calls f
func (f ModifiedFunc) Modified(props *Properties, p *Property, s *settings.Data) bool {
	return f(props, p, s)
}

// ButtonHandler runs when a button property is clicked. It returns true
// when the property list must be presented again.
type ButtonHandler interface {
	Clicked(props *Properties, p *Property) bool
}

// ButtonFunc adapts a function to ButtonHandler
type ButtonFunc func(props *Properties, p *Property) bool

// Clicked calls f
func (f ButtonFunc) Clicked(props *Properties, p *Property) bool { return f(props, p) }

// Item is one entry of a list property
type Item struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Property describes one user-editable field
type Property struct {
	name        string
	description string
	longDesc    string
	typ         Type
	visible     bool
	enabled     bool
	parent      *Properties
	modified    ModifiedHandler

	// int and float
	min, max, step float64
	numberType     NumberType
	suffix         string

	// text
	textType     TextType
	monospace    bool
	infoType     TextInfoType
	infoWordWrap bool

	// path and editable list
	pathType     PathType
	editListType EditableListType
	filter       string
	defaultPath  string

	// list
	comboType   ComboType
	comboFormat ComboFormat
	items       []Item

	// group
	groupType    GroupType
	groupContent *Properties

	// button
	buttonType ButtonType
	url        string
	clicked    ButtonHandler
}

func newProperty(name, description string, t Type) *Property {
	return &Property{
		name:        name,
		description: description,
		typ:         t,
		visible:     true,
		enabled:     true,
	}
}

// Name returns the settings key of the property
func (p *Property) Name() string { return p.name }

// Description returns the short label
func (p *Property) Description() string { return p.description }

// LongDescription returns the tooltip text
func (p *Property) LongDescription() string { return p.longDesc }

// SetLongDescription sets the tooltip text
func (p *Property) SetLongDescription(s string) *Property {
	p.longDesc = s
	return p
}

// SetDescription changes the short label
func (p *Property) SetDescription(s string) *Property {
	p.description = s
	return p
}

// Type returns the property type
func (p *Property) Type() Type { return p.typ }

// Visible reports whether the property is shown
func (p *Property) Visible() bool { return p.visible }

// SetVisible shows or hides the property
func (p *Property) SetVisible(v bool) *Property {
	p.visible = v
	return p
}

// Enabled reports whether the property is editable
func (p *Property) Enabled() bool { return p.enabled }

// SetEnabled enables or disables editing
func (p *Property) SetEnabled(v bool) *Property {
	p.enabled = v
	return p
}

// SetModifiedHandler sets the change callback
func (p *Property) SetModifiedHandler(h ModifiedHandler) *Property {
	p.modified = h
	return p
}

// NumberLimits returns the min, max and step of int and float properties
func (p *Property) NumberLimits() (min, max, step float64) { return p.min, p.max, p.step }

// NumberType returns the number widget type
func (p *Property) NumberType() NumberType { return p.numberType }

// Suffix returns the unit suffix shown after numbers
func (p *Property) Suffix() string { return p.suffix }

// SetSuffix sets the unit suffix shown after numbers
func (p *Property) SetSuffix(s string) *Property {
	p.suffix = s
	return p
}

// SetLimits changes the bounds of an int or float property
func (p *Property) SetLimits(min, max, step float64) *Property {
	p.min, p.max, p.step = min, max, step
	return p
}

// TextType returns the text variant
func (p *Property) TextType() TextType { return p.textType }

// Monospace reports whether text is shown in a fixed-width font
func (p *Property) Monospace() bool { return p.monospace }

// SetMonospace toggles the fixed-width font
func (p *Property) SetMonospace(v bool) *Property {
	p.monospace = v
	return p
}

// InfoType returns the severity of an info text
func (p *Property) InfoType() TextInfoType { return p.infoType }

// SetInfoType sets the severity of an info text
func (p *Property) SetInfoType(t TextInfoType) *Property {
	p.infoType = t
	return p
}

// InfoWordWrap reports whether info text wraps
func (p *Property) InfoWordWrap() bool { return p.infoWordWrap }

// SetInfoWordWrap toggles wrapping of info text
func (p *Property) SetInfoWordWrap(v bool) *Property {
	p.infoWordWrap = v
	return p
}

// PathType returns what the path points at
func (p *Property) PathType() PathType { return p.pathType }

// EditableListType returns what the editable list holds
func (p *Property) EditableListType() EditableListType { return p.editListType }

// Filter returns the file dialog filter
func (p *Property) Filter() string { return p.filter }

// DefaultPath returns the starting directory of the file dialog
func (p *Property) DefaultPath() string { return p.defaultPath }

// ComboType returns the list widget type
func (p *Property) ComboType() ComboType { return p.comboType }

// ComboFormat returns the value type of list items
func (p *Property) ComboFormat() ComboFormat { return p.comboFormat }

// Items returns a copy of the list items
func (p *Property) Items() []Item {
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}

func (p *Property) addItem(idx int, name string, value any, format ComboFormat) int {
	if p.typ != TypeList || p.comboFormat != format {
		return -1
	}
	it := Item{Name: name, Value: value}
	if idx < 0 || idx >= len(p.items) {
		p.items = append(p.items, it)
		return len(p.items) - 1
	}
	p.items = append(p.items[:idx+1], p.items[idx:]...)
	p.items[idx] = it
	return idx
}

// AddItemInt appends an item to an int list and returns its index, or -1
// when the list holds another format
func (p *Property) AddItemInt(name string, v int64) int {
	return p.addItem(-1, name, v, ComboFormatInt)
}

// AddItemFloat appends an item to a float list
func (p *Property) AddItemFloat(name string, v float64) int {
	return p.addItem(-1, name, v, ComboFormatFloat)
}

// AddItemString appends an item to a string list
func (p *Property) AddItemString(name, v string) int {
	return p.addItem(-1, name, v, ComboFormatString)
}

// AddItemBool appends an item to a bool list
func (p *Property) AddItemBool(name string, v bool) int {
	return p.addItem(-1, name, v, ComboFormatBool)
}

// InsertItemString inserts an item into a string list at idx
func (p *Property) InsertItemString(idx int, name, v string) int {
	return p.addItem(idx, name, v, ComboFormatString)
}

// InsertItemInt inserts an item into an int list at idx
func (p *Property) InsertItemInt(idx int, name string, v int64) int {
	return p.addItem(idx, name, v, ComboFormatInt)
}

// SetItemDisabled greys out the item at idx
func (p *Property) SetItemDisabled(idx int, disabled bool) {
	if idx >= 0 && idx < len(p.items) {
		p.items[idx].Disabled = disabled
	}
}

// RemoveItem drops the item at idx
func (p *Property) RemoveItem(idx int) {
	if idx >= 0 && idx < len(p.items) {
		p.items = append(p.items[:idx], p.items[idx+1:]...)
	}
}

// ClearItems drops every item
func (p *Property) ClearItems() { p.items = nil }

// GroupType returns the group type
func (p *Property) GroupType() GroupType { return p.groupType }

// Content returns the properties nested in a group
func (p *Property) Content() *Properties { return p.groupContent }

// ButtonType returns the button behavior
func (p *Property) ButtonType() ButtonType { return p.buttonType }

// URL returns the target of a URL button
func (p *Property) URL() string { return p.url }

// SetURL turns the button into a URL button
func (p *Property) SetURL(url string) *Property {
	p.buttonType = ButtonURL
	p.url = url
	return p
}

// Click runs the button handler. It returns true when the property list
// must be presented again.
func (p *Property) Click() bool {
	if p.typ != TypeButton || p.clicked == nil || !p.enabled {
		return false
	}
	return p.clicked.Clicked(p.parent, p)
}
