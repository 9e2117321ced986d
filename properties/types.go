package properties

// Type is the kind of a property
type Type int

const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeText
	TypePath
	TypeList
	TypeColor
	TypeButton
	TypeFont
	TypeEditableList
	TypeGroup
	TypeColorAlpha
)

var typeNames = map[Type]string{
	TypeInvalid:      "invalid",
	TypeBool:         "bool",
	TypeInt:          "int",
	TypeFloat:        "float",
	TypeText:         "text",
	TypePath:         "path",
	TypeList:         "list",
	TypeColor:        "color",
	TypeButton:       "button",
	TypeFont:         "font",
	TypeEditableList: "editable_list",
	TypeGroup:        "group",
	TypeColorAlpha:   "color_alpha",
}

// String returns a string representation of the property type
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the type by name
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// NumberType selects the widget of int and float properties
type NumberType int

const (
	NumberScroller NumberType = iota
	NumberSlider
)

// TextType selects the variant of text properties
type TextType int

const (
	TextDefault TextType = iota
	TextPassword
	TextMultiline
	TextInfo
)

// TextInfoType is the severity shown by TextInfo properties
type TextInfoType int

const (
	TextInfoNormal TextInfoType = iota
	TextInfoWarning
	TextInfoError
)

// PathType selects what a path property points at
type PathType int

const (
	PathFile PathType = iota
	PathFileSave
	PathDirectory
)

// ComboType selects the widget of list properties
type ComboType int

const (
	ComboInvalid ComboType = iota
	ComboEditable
	ComboList
	ComboRadio
)

// ComboFormat is the value type of list items
type ComboFormat int

const (
	ComboFormatInvalid ComboFormat = iota
	ComboFormatInt
	ComboFormatFloat
	ComboFormatString
	ComboFormatBool
)

// EditableListType selects what an editable list holds
type EditableListType int

const (
	EditableListStrings EditableListType = iota
	EditableListFiles
	EditableListFilesAndURLs
)

// GroupType selects whether a group can be toggled
type GroupType int

const (
	GroupInvalid GroupType = iota
	GroupNormal
	GroupCheckable
)

// ButtonType selects the button behavior
type ButtonType int

const (
	ButtonDefault ButtonType = iota
	ButtonURL
)

// FontFlags are style bits stored in font settings
type FontFlags uint32

const (
	FontBold FontFlags = 1 << iota
	FontItalic
	FontUnderline
	FontStrikeout
)

// Flags change how a presentation layer applies edits
type Flags uint32

const (
	// DeferUpdate asks presentation layers to apply edits once editing ends
	DeferUpdate Flags = 1 << iota
)
