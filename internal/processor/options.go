package processor

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Options carries the processor options declared on a task. The value is an
// HCL object (or map) evaluated to cty; absent options are a null value.
type Options struct {
	value cty.Value
}

// NewOptions wraps a cty object or map.
func NewOptions(v cty.Value) Options {
	return Options{value: v}
}

// OptionsFromMap builds Options from plain Go strings, mostly for tests and
// programmatic task registration.
func OptionsFromMap(m map[string]string) Options {
	if len(m) == 0 {
		return Options{}
	}
	v, err := gocty.ToCtyValue(m, cty.Map(cty.String))
	if err != nil {
		panic(fmt.Sprintf("processor: converting options: %v", err))
	}
	return Options{value: v}
}

// Value returns the underlying cty value.
func (o Options) Value() cty.Value {
	return o.value
}

// lookup returns the raw attribute, or false when it is not set.
func (o Options) lookup(key string) (cty.Value, bool) {
	v := o.value
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, false
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(key) {
			return cty.NilVal, false
		}
		attr := v.GetAttr(key)
		return attr, !attr.IsNull()
	case ty.IsMapType():
		k := cty.StringVal(key)
		if v.HasIndex(k).False() {
			return cty.NilVal, false
		}
		elem := v.Index(k)
		return elem, !elem.IsNull()
	default:
		return cty.NilVal, false
	}
}

// String returns the option as a string, or def when it is not set.
func (o Options) String(key, def string) (string, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	v, err := convert.Convert(raw, cty.String)
	if err != nil {
		return "", fmt.Errorf("option %q: %w", key, err)
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("option %q: value is not known", key)
	}
	return v.AsString(), nil
}
