package envconf

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type parseFunc func(text string) (reflect.Value, error)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// Registry maps a type to the function that parses its string form.
// Types without an exact entry fall back to encoding.TextUnmarshaler, then to
// their underlying kind, then to slice and map composition.
type Registry struct {
	parsers map[reflect.Type]parseFunc
}

// NewRegistry returns a registry holding the builtin parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[reflect.Type]parseFunc)}
	RegisterParser(r, time.ParseDuration)
	RegisterParser(r, func(s string) (url.URL, error) {
		u, err := url.Parse(s)
		if err != nil {
			return url.URL{}, err
		}
		return *u, nil
	})
	RegisterParser(r, func(s string) ([]byte, error) { return []byte(s), nil })
	return r
}

// RegisterParser adds or replaces the parser for T. A zero Registry is
// usable but holds no builtin parsers.
func RegisterParser[T any](r *Registry, fn func(string) (T, error)) {
	if r.parsers == nil {
		r.parsers = make(map[reflect.Type]parseFunc)
	}
	r.parsers[reflect.TypeOf((*T)(nil)).Elem()] = func(text string) (reflect.Value, error) {
		v, err := fn(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(&v).Elem(), nil
	}
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	c := &Registry{parsers: make(map[reflect.Type]parseFunc, len(r.parsers))}
	for t, fn := range r.parsers {
		c.parsers[t] = fn
	}
	return c
}

// Supports reports whether values of t can be parsed.
func (r *Registry) Supports(t reflect.Type) bool {
	_, ok := r.lookup(t)
	return ok
}

// Parse converts text into a value of type t.
func (r *Registry) Parse(t reflect.Type, text string) (any, error) {
	parse, ok := r.lookup(t)
	if !ok {
		return nil, fmt.Errorf("unsupported type %s", t)
	}
	v, err := parse(text)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (r *Registry) lookup(t reflect.Type) (parseFunc, bool) {
	if fn, ok := r.parsers[t]; ok {
		return fn, true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return textParser(t), true
	}
	if fn := kindParser(t); fn != nil {
		return fn, true
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, ok := r.lookup(t.Elem())
		if !ok {
			return nil, false
		}
		return sliceParser(t, elem), true
	case reflect.Map:
		key, ok := r.lookup(t.Key())
		if !ok {
			return nil, false
		}
		elem, ok := r.lookup(t.Elem())
		if !ok {
			return nil, false
		}
		return mapParser(t, key, elem), true
	}
	return nil, false
}

func textParser(t reflect.Type) parseFunc {
	return func(text string) (reflect.Value, error) {
		v := reflect.New(t)
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return reflect.Value{}, err
		}
		return v.Elem(), nil
	}
}

func kindParser(t reflect.Type) parseFunc {
	switch t.Kind() {
	case reflect.String:
		return func(text string) (reflect.Value, error) {
			v := reflect.New(t).Elem()
			v.SetString(text)
			return v, nil
		}
	case reflect.Bool:
		return func(text string) (reflect.Value, error) {
			b, err := strconv.ParseBool(text)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			v.SetBool(b)
			return v, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(text string) (reflect.Value, error) {
			i, err := strconv.ParseInt(text, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			v.SetInt(i)
			return v, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(text string) (reflect.Value, error) {
			u, err := strconv.ParseUint(text, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			v.SetUint(u)
			return v, nil
		}
	case reflect.Float32, reflect.Float64:
		return func(text string) (reflect.Value, error) {
			f, err := strconv.ParseFloat(text, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			v.SetFloat(f)
			return v, nil
		}
	}
	return nil
}

// sliceParser splits on commas and parses each trimmed element.
func sliceParser(t reflect.Type, elem parseFunc) parseFunc {
	return func(text string) (reflect.Value, error) {
		parts := strings.Split(text, ",")
		v := reflect.MakeSlice(t, 0, len(parts))
		for i, part := range parts {
			e, err := elem(strings.TrimSpace(part))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			v = reflect.Append(v, e)
		}
		return v, nil
	}
}

// mapParser reads comma separated key:value pairs.
func mapParser(t reflect.Type, key, elem parseFunc) parseFunc {
	return func(text string) (reflect.Value, error) {
		pairs := strings.Split(text, ",")
		v := reflect.MakeMapWithSize(t, len(pairs))
		for _, pair := range pairs {
			k, e, ok := strings.Cut(pair, ":")
			if !ok {
				return reflect.Value{}, fmt.Errorf("entry %q: expected key:value", strings.TrimSpace(pair))
			}
			kv, err := key(strings.TrimSpace(k))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", strings.TrimSpace(k), err)
			}
			ev, err := elem(strings.TrimSpace(e))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("value for key %q: %w", strings.TrimSpace(k), err)
			}
			v.SetMapIndex(kv, ev)
		}
		return v, nil
	}
}
