package settings

// Setters and getters per value type and layer. Integer and float getters
// convert between each other so a value written as 3 reads back as 3.0.

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toObj(v any) *Data {
	o, _ := v.(*Data)
	return o
}

func toArray(v any) *Array {
	a, _ := v.(*Array)
	return a
}

func objValue(o *Data) any {
	if o == nil {
		return nil
	}
	return o
}

func arrayValue(a *Array) any {
	if a == nil {
		return nil
	}
	return a
}

// SetBool sets the user value of key
func (d *Data) SetBool(key string, v bool) { d.set(layerUser, key, v) }

// SetInt sets the user value of key
func (d *Data) SetInt(key string, v int64) { d.set(layerUser, key, v) }

// SetDouble sets the user value of key
func (d *Data) SetDouble(key string, v float64) { d.set(layerUser, key, v) }

// SetString sets the user value of key
func (d *Data) SetString(key string, v string) { d.set(layerUser, key, v) }

// SetObj sets the user value of key. A nil object unsets it.
func (d *Data) SetObj(key string, v *Data) {
	if v == nil {
		d.Unset(key)
		return
	}
	d.set(layerUser, key, objValue(v))
}

// SetArray sets the user value of key. A nil array unsets it.
func (d *Data) SetArray(key string, v *Array) {
	if v == nil {
		d.Unset(key)
		return
	}
	d.set(layerUser, key, arrayValue(v))
}

// SetDefaultBool registers the default of key
func (d *Data) SetDefaultBool(key string, v bool) { d.set(layerDefault, key, v) }

// SetDefaultInt registers the default of key
func (d *Data) SetDefaultInt(key string, v int64) { d.set(layerDefault, key, v) }

// SetDefaultDouble registers the default of key
func (d *Data) SetDefaultDouble(key string, v float64) { d.set(layerDefault, key, v) }

// SetDefaultString registers the default of key
func (d *Data) SetDefaultString(key string, v string) { d.set(layerDefault, key, v) }

// SetDefaultObj registers the default of key
func (d *Data) SetDefaultObj(key string, v *Data) {
	if v == nil {
		d.UnsetDefault(key)
		return
	}
	d.set(layerDefault, key, objValue(v))
}

// SetDefaultArray registers the default of key
func (d *Data) SetDefaultArray(key string, v *Array) {
	if v == nil {
		d.UnsetDefault(key)
		return
	}
	d.set(layerDefault, key, arrayValue(v))
}

// SetAutoselectBool sets the autoselect value of key
func (d *Data) SetAutoselectBool(key string, v bool) { d.set(layerAutoselect, key, v) }

// SetAutoselectInt sets the autoselect value of key
func (d *Data) SetAutoselectInt(key string, v int64) { d.set(layerAutoselect, key, v) }

// SetAutoselectDouble sets the autoselect value of key
func (d *Data) SetAutoselectDouble(key string, v float64) { d.set(layerAutoselect, key, v) }

// SetAutoselectString sets the autoselect value of key
func (d *Data) SetAutoselectString(key string, v string) { d.set(layerAutoselect, key, v) }

// GetBool returns the effective value of key
func (d *Data) GetBool(key string) bool { return toBool(d.effective(key)) }

// GetInt returns the effective value of key
func (d *Data) GetInt(key string) int64 { return toInt(d.effective(key)) }

// GetDouble returns the effective value of key
func (d *Data) GetDouble(key string) float64 { return toFloat(d.effective(key)) }

// GetString returns the effective value of key
func (d *Data) GetString(key string) string { return toString(d.effective(key)) }

// GetObj returns the effective nested object of key, or nil. The returned
// object is shared with d.
func (d *Data) GetObj(key string) *Data { return toObj(d.effective(key)) }

// GetArray returns the effective array of key, or nil. The returned array
// is shared with d.
func (d *Data) GetArray(key string) *Array { return toArray(d.effective(key)) }

// GetDefaultBool returns the default of key
func (d *Data) GetDefaultBool(key string) bool { return toBool(d.layerValue(layerDefault, key)) }

// GetDefaultInt returns the default of key
func (d *Data) GetDefaultInt(key string) int64 { return toInt(d.layerValue(layerDefault, key)) }

// GetDefaultDouble returns the default of key
func (d *Data) GetDefaultDouble(key string) float64 {
	return toFloat(d.layerValue(layerDefault, key))
}

// GetDefaultString returns the default of key
func (d *Data) GetDefaultString(key string) string {
	return toString(d.layerValue(layerDefault, key))
}

// GetDefaultObj returns the default of key
func (d *Data) GetDefaultObj(key string) *Data { return toObj(d.layerValue(layerDefault, key)) }

// GetDefaultArray returns the default of key
func (d *Data) GetDefaultArray(key string) *Array {
	return toArray(d.layerValue(layerDefault, key))
}

// GetAutoselectBool returns the autoselect value of key
func (d *Data) GetAutoselectBool(key string) bool {
	return toBool(d.layerValue(layerAutoselect, key))
}

// GetAutoselectInt returns the autoselect value of key
func (d *Data) GetAutoselectInt(key string) int64 {
	return toInt(d.layerValue(layerAutoselect, key))
}

// GetAutoselectDouble returns the autoselect value of key
func (d *Data) GetAutoselectDouble(key string) float64 {
	return toFloat(d.layerValue(layerAutoselect, key))
}

// GetAutoselectString returns the autoselect value of key
func (d *Data) GetAutoselectString(key string) string {
	return toString(d.layerValue(layerAutoselect, key))
}
