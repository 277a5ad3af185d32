package envconf

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/sirupsen/logrus"
)

// Kind says how a field behaves when no value is found.
type Kind int

const (
	// Required fields fail resolution when absent.
	Required Kind = iota
	// Optional fields are pointers and stay nil when absent.
	Optional
	// DefaultZero fields take their type's zero value when absent.
	DefaultZero
	// DefaultValue fields take their envDefault literal when absent.
	DefaultValue
)

func (k Kind) String() string {
	switch k {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case DefaultZero:
		return "default"
	case DefaultValue:
		return "default value"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FieldSpec is the compiled resolution plan of one field.
type FieldSpec struct {
	Field     string
	Name      string
	Kind      Kind
	FromFile  bool
	Converter string
	// Type is the value type; for Optional fields, the pointer's element type.
	Type reflect.Type
	// Default holds the parsed envDefault literal of DefaultValue fields.
	Default any

	index        []int
	parse        parseFunc
	convert      Converter
	defaultValue reflect.Value
}

// Plan is the compiled, immutable form of one configuration struct. A Plan
// may be resolved any number of times, concurrently.
type Plan struct {
	typ    reflect.Type
	fields []FieldSpec
	opts   *options
}

// Compile builds the Plan for cfg, which may be a struct value or a pointer
// to one (a typed nil pointer is fine). Illegal declarations are reported as
// *DefinitionError; no environment state is read.
func Compile(cfg any, opts ...Option) (*Plan, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(cfg)
	if typ == nil {
		return nil, fmt.Errorf("%w: config must not be nil", ErrInvalidTarget)
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTarget, reflect.TypeOf(cfg))
	}

	p := &Plan{typ: typ, opts: o}
	seen := make(map[string]string)
	var skipped [][]int
	for _, f := range reflect.VisibleFields(typ) {
		if underSkipped(f.Index, skipped) {
			continue
		}
		if f.Anonymous {
			if tag, err := parseTag(f); err == nil && tag.skip {
				skipped = append(skipped, f.Index)
				continue
			}
			if f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct {
				return nil, &DefinitionError{Type: typ, Field: f.Name, Reason: "embedded struct pointers are not supported"}
			}
			if f.Type.Kind() == reflect.Struct {
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		spec, ok, err := p.buildSpec(f)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if other, dup := seen[spec.Name]; dup {
			return nil, &DefinitionError{Type: typ, Field: f.Name, Reason: fmt.Sprintf("variable %q already used by field %s", spec.Name, other)}
		}
		seen[spec.Name] = f.Name
		p.fields = append(p.fields, spec)
	}

	o.logger.WithFields(logrus.Fields{
		"type":   typ.String(),
		"fields": len(p.fields),
		"prefix": o.prefix,
	}).Debug("compiled config plan")
	return p, nil
}

// underSkipped reports whether index lies inside an embedded struct tagged
// env:"-".
func underSkipped(index []int, skipped [][]int) bool {
	for _, prefix := range skipped {
		if len(index) > len(prefix) && slices.Equal(index[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

func (p *Plan) buildSpec(f reflect.StructField) (FieldSpec, bool, error) {
	fail := func(format string, args ...any) (FieldSpec, bool, error) {
		return FieldSpec{}, false, &DefinitionError{Type: p.typ, Field: f.Name, Reason: fmt.Sprintf(format, args...)}
	}

	tag, err := parseTag(f)
	if err != nil {
		return fail("%v", err)
	}
	if tag.skip {
		return FieldSpec{}, false, nil
	}

	name := tag.name
	if name == "" {
		name = ToEnvKey(f.Name)
	}
	spec := FieldSpec{
		Field:     f.Name,
		Name:      p.opts.prefix + name,
		FromFile:  tag.fromFile,
		Converter: tag.converter,
		Type:      f.Type,
		index:     f.Index,
	}

	switch {
	case f.Type.Kind() == reflect.Pointer:
		spec.Kind = Optional
		spec.Type = f.Type.Elem()
		if tag.zeroDefault || tag.hasDefault {
			return fail("optional (pointer) fields cannot have a default; they are nil when unset")
		}
	case tag.zeroDefault:
		spec.Kind = DefaultZero
	case tag.hasDefault:
		spec.Kind = DefaultValue
	}

	if spec.Converter != "" {
		if spec.Kind == DefaultZero || spec.Kind == DefaultValue {
			return fail("converter %q cannot be combined with a default", spec.Converter)
		}
		conv, ok := p.opts.converters[spec.Converter]
		if !ok {
			return fail("unknown converter %q", spec.Converter)
		}
		if want, ok := p.opts.convTypes[spec.Converter]; ok && want != spec.Type {
			return fail("converter %q yields %s, field is %s", spec.Converter, want, spec.Type)
		}
		spec.convert = conv
		return spec, true, nil
	}

	parse, ok := p.opts.registry.lookup(spec.Type)
	if !ok {
		return fail("unsupported type %s: register a parser or name a converter", spec.Type)
	}
	spec.parse = parse

	if spec.Kind == DefaultValue {
		v, err := parse(tag.defaultText)
		if err != nil {
			return fail("invalid %s %q for %s: %v", tagDefault, tag.defaultText, spec.Type, err)
		}
		spec.defaultValue = v
		spec.Default = v.Interface()
	}
	return spec, true, nil
}

// Type returns the struct type the plan was compiled for.
func (p *Plan) Type() reflect.Type { return p.typ }

// Fields returns the field plans in declaration order.
func (p *Plan) Fields() []FieldSpec {
	out := make([]FieldSpec, len(p.fields))
	copy(out, p.fields)
	return out
}

// Resolve reads the environment and fills cfg, a non-nil pointer to the
// plan's struct type. Every field is evaluated; if any fails, the returned
// *AggregateError lists all failures and cfg is left untouched.
func (p *Plan) Resolve(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, cfg)
	}
	if rv.Elem().Type() != p.typ {
		return fmt.Errorf("%w: plan is for %s, got %T", ErrInvalidTarget, p.typ, cfg)
	}

	src, err := p.opts.resolver()
	if err != nil {
		return err
	}

	values := make([]reflect.Value, len(p.fields))
	var errs []error
	for i := range p.fields {
		v, err := p.resolveField(src, &p.fields[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[i] = v
	}
	if len(errs) > 0 {
		p.opts.logger.WithFields(logrus.Fields{
			"type":   p.typ.String(),
			"failed": len(errs),
		}).Warn("config resolution failed")
		return &AggregateError{Errors: errs}
	}

	dst := rv.Elem()
	for i := range p.fields {
		dst.FieldByIndex(p.fields[i].index).Set(values[i])
	}
	return nil
}

func (p *Plan) resolveField(src resolver, spec *FieldSpec) (reflect.Value, error) {
	out, err := src.resolve(spec.Name, spec.FromFile)
	if err != nil {
		var fe *FileReadError
		if errors.As(err, &fe) {
			fe.Field = spec.Field
		}
		return reflect.Value{}, err
	}

	v, source, err := coerce(out, spec)
	if err != nil {
		return reflect.Value{}, err
	}

	p.opts.logger.WithFields(logrus.Fields{
		"field":  spec.Field,
		"env":    spec.Name,
		"source": source,
	}).Debug("resolved config field")
	return v, nil
}
