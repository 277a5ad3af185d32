// Package envconf loads typed configuration structs from environment
// variables, with an optional <NAME>_FILE fallback for file-based secrets.
//
// Fields are declared with struct tags:
//
//	type Config struct {
//		APIKey  string         `env:",file"`             // API_KEY or API_KEY_FILE
//		Port    uint16         `envDefault:"8080"`       // PORT, 8080 when unset
//		Debug   bool           `env:",default"`          // DEBUG, false when unset
//		DBURL   string         `env:"DATABASE_URL,file"` // DATABASE_URL or DATABASE_URL_FILE
//		Tags    []string       `env:",conv=json"`        // TAGS as a JSON array
//		Timeout *time.Duration // TIMEOUT, nil when unset
//		Skipped string         `env:"-"`
//	}
//
// Field names map to UPPER_SNAKE_CASE (see ToEnvKey) unless the env tag names
// the variable. WithPrefix prepends a prefix to every name, overrides
// included. A field with no default and a non-pointer type is required.
//
// A set variable always wins over its _FILE variant, and the file is then not
// read. A _FILE variable whose path cannot be read is an error, never
// treated as unset. File contents are used verbatim. Empty variables count as
// unset.
//
// Resolution evaluates every field and reports all failures together in an
// *AggregateError; the target struct is only written when every field
// resolved.
package envconf

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// Option configures Compile, Load, and FromEnv.
type Option func(*options)

type options struct {
	prefix     string
	lookup     LookupFunc
	dotenv     []string
	readFile   ReadFileFunc
	registry   *Registry
	parsers    []func(*Registry)
	converters map[string]Converter
	convTypes  map[string]reflect.Type
	logger     logrus.FieldLogger
	err        error
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		registry:   NewRegistry(),
		converters: builtinConverters(),
		convTypes:  map[string]reflect.Type{"list": reflect.TypeOf((*[]string)(nil)).Elem()},
		logger:     discardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}
	// Parsers land after WithRegistry regardless of option order.
	for _, register := range o.parsers {
		register(o.registry)
	}
	return o, nil
}

func (o *options) resolver() (resolver, error) {
	r := newResolver(o.lookup, o.readFile)
	if len(o.dotenv) == 0 {
		return r, nil
	}
	lookup, err := dotenvLookup(r.lookup, o.dotenv)
	if err != nil {
		return resolver{}, fmt.Errorf("envconf: read dotenv: %w", err)
	}
	r.lookup = lookup
	return r, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// WithPrefix prepends prefix verbatim to every variable name.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = strings.TrimSpace(prefix)
	}
}

// WithLookup replaces os.LookupEnv as the variable source.
func WithLookup(lookup LookupFunc) Option {
	return func(o *options) {
		if lookup == nil {
			o.err = errors.New("envconf: nil lookup")
			return
		}
		o.lookup = lookup
	}
}

// WithDotenv consults the given dotenv files for variables the environment
// does not set. The files are read on every resolution.
func WithDotenv(files ...string) Option {
	return func(o *options) {
		o.dotenv = append(o.dotenv, files...)
	}
}

// WithReadFile replaces os.ReadFile for <NAME>_FILE paths.
func WithReadFile(readFile ReadFileFunc) Option {
	return func(o *options) {
		if readFile == nil {
			o.err = errors.New("envconf: nil file reader")
			return
		}
		o.readFile = readFile
	}
}

// WithRegistry uses a copy of r for builtin parsing.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r == nil {
			o.err = errors.New("envconf: nil registry")
			return
		}
		o.registry = r.Clone()
	}
}

// WithParser registers fn as the parser for T, on top of any registry given
// with WithRegistry.
func WithParser[T any](fn func(string) (T, error)) Option {
	return func(o *options) {
		if fn == nil {
			o.err = errors.New("envconf: nil parser")
			return
		}
		o.parsers = append(o.parsers, func(r *Registry) { RegisterParser(r, fn) })
	}
}

// WithConverter makes conv available to fields tagged conv=name.
func WithConverter(name string, conv Converter) Option {
	return func(o *options) {
		if name == "" || conv == nil {
			o.err = fmt.Errorf("envconf: invalid converter %q", name)
			return
		}
		o.converters[name] = conv
		delete(o.convTypes, name)
	}
}

// WithConverterFunc makes fn available to fields tagged conv=name. Compile
// rejects fields whose type is not T.
func WithConverterFunc[T any](name string, fn func(string) (T, error)) Option {
	return func(o *options) {
		if name == "" || fn == nil {
			o.err = fmt.Errorf("envconf: invalid converter %q", name)
			return
		}
		o.converters[name] = ConverterFunc(fn)
		o.convTypes[name] = reflect.TypeOf((*T)(nil)).Elem()
	}
}

// WithLogger sets the logger for debug tracing. Values are never logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger == nil {
			logger = discardLogger()
		}
		o.logger = logger
	}
}

// Load compiles cfg's type and resolves it from the environment. cfg must be
// a non-nil pointer to a struct.
func Load(cfg any, opts ...Option) error {
	if cfg == nil {
		return fmt.Errorf("%w: config must not be nil", ErrInvalidTarget)
	}
	plan, err := Compile(cfg, opts...)
	if err != nil {
		return err
	}
	return plan.Resolve(cfg)
}

// FromEnv returns a T resolved from the environment.
func FromEnv[T any](opts ...Option) (T, error) {
	var cfg T
	if err := Load(&cfg, opts...); err != nil {
		var zero T
		return zero, err
	}
	return cfg, nil
}
