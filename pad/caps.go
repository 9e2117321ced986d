package pad

import "strings"

// Caps describes the media types a pad can carry. A nil *Caps behaves as
// ANY.
type Caps struct {
	any   bool
	types []string
}

// AnyCaps returns caps compatible with everything
func AnyCaps() *Caps {
	return &Caps{any: true}
}

// NewCaps returns caps carrying the given media types, in preference order
func NewCaps(types ...string) *Caps {
	c := &Caps{}
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		c.types = append(c.types, t)
	}
	return c
}

// IsAny reports whether the caps accept every media type
func (c *Caps) IsAny() bool { return c == nil || c.any }

// IsEmpty reports whether the caps accept nothing
func (c *Caps) IsEmpty() bool { return c != nil && !c.any && len(c.types) == 0 }

// Types returns the media types, or nil for ANY
func (c *Caps) Types() []string {
	if c.IsAny() {
		return nil
	}
	out := make([]string, len(c.types))
	copy(out, c.types)
	return out
}

// Intersect returns the media types both caps accept, in c's order
func (c *Caps) Intersect(other *Caps) *Caps {
	switch {
	case c.IsAny() && other.IsAny():
		return AnyCaps()
	case c.IsAny():
		return NewCaps(other.types...)
	case other.IsAny():
		return NewCaps(c.types...)
	}

	accept := make(map[string]bool, len(other.types))
	for _, t := range other.types {
		accept[t] = true
	}
	out := &Caps{}
	for _, t := range c.types {
		if accept[t] {
			out.types = append(out.types, t)
		}
	}
	return out
}

// Intersects reports whether the caps share at least one media type
func (c *Caps) Intersects(other *Caps) bool {
	return !c.Intersect(other).IsEmpty()
}

// String returns "ANY", "EMPTY" or the media types joined by "; "
func (c *Caps) String() string {
	switch {
	case c.IsAny():
		return "ANY"
	case len(c.types) == 0:
		return "EMPTY"
	default:
		return strings.Join(c.types, "; ")
	}
}
