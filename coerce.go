package envconf

import (
	"reflect"
)

// coerce turns a resolution outcome into the value to assign to spec's field.
// The returned label names where the value came from, for logging.
func coerce(out outcome, spec *FieldSpec) (reflect.Value, string, error) {
	if !out.present() {
		switch spec.Kind {
		case Optional:
			return reflect.Zero(reflect.PointerTo(spec.Type)), SourceNone.String(), nil
		case DefaultZero:
			return reflect.Zero(spec.Type), "default", nil
		case DefaultValue:
			return cloneValue(spec.defaultValue), "default", nil
		default:
			return reflect.Value{}, "", &MissingError{Field: spec.Field, Name: spec.Name, FromFile: spec.FromFile}
		}
	}

	v, err := convert(out.text, spec)
	if err != nil {
		return reflect.Value{}, "", &ConversionError{
			Field:     spec.Field,
			Name:      spec.Name,
			Source:    out.source,
			Text:      out.text,
			Type:      spec.Type,
			Converter: spec.Converter,
			Err:       err,
		}
	}

	if spec.Kind == Optional {
		ptr := reflect.New(spec.Type)
		ptr.Elem().Set(v)
		v = ptr
	}
	return v, out.source.String(), nil
}

func convert(text string, spec *FieldSpec) (reflect.Value, error) {
	if spec.convert == nil {
		return spec.parse(text)
	}
	dst := reflect.New(spec.Type)
	if err := spec.convert(text, dst.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return dst.Elem(), nil
}

// cloneValue copies slices and maps so callers cannot mutate a plan's
// default through a resolved struct.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(c, v)
		return c
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), iter.Value())
		}
		return c
	}
	return v
}
