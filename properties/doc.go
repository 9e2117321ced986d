// Package properties describes the user-editable settings of an element
// type for presentation layers (a UI, the olsd CLI) and validates settings
// against that description.
//
// A Properties list is built by the element and returned from its
// properties callback:
//
//	props := properties.New()
//	props.AddPath("file", "Input file", properties.PathFile, "Logs (*.log)", "")
//	props.AddBool("skip_empty", "Skip empty lines")
//	p := props.AddInt("rate", "Lines per second", 0, 100000, 10)
//	p.SetSuffix(" /s")
//
// Properties are never rendered here. They marshal to JSON for presentation
// layers, export a JSON Schema, and Validate checks a settings container
// against that schema.
package properties
