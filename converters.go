package envconf

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"
)

// Converter decodes text into dst, a pointer to a new value of the field's
// type. Converters replace the builtin parsers for the fields that name them.
type Converter func(text string, dst any) error

// ConverterFunc adapts a typed parsing function to a Converter.
func ConverterFunc[T any](fn func(string) (T, error)) Converter {
	return func(text string, dst any) error {
		p, ok := dst.(*T)
		if !ok {
			return fmt.Errorf("converter yields %T, field needs %T", p, dst)
		}
		v, err := fn(text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}
}

// JSON decodes text as a JSON document.
func JSON(text string, dst any) error {
	return json.Unmarshal([]byte(text), dst)
}

// YAML decodes text as a YAML document. Field names follow json tags.
func YAML(text string, dst any) error {
	return yaml.UnmarshalStrict([]byte(text), dst)
}

// TOML decodes text as a TOML document; dst must be a struct or map.
func TOML(text string, dst any) error {
	md, err := toml.Decode(text, dst)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys %v", undecoded)
	}
	return nil
}

// List splits text on commas into a []string, trimming each element and
// dropping empty ones.
func List(text string, dst any) error {
	p, ok := dst.(*[]string)
	if !ok {
		return fmt.Errorf("list converter needs *[]string, got %T", dst)
	}
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*p = out
	return nil
}

func builtinConverters() map[string]Converter {
	return map[string]Converter{
		"json": JSON,
		"yaml": YAML,
		"toml": TOML,
		"list": List,
	}
}
