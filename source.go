package envconf

import (
	"os"

	"github.com/joho/godotenv"
)

// FileSuffix is appended to a variable name to form its file fallback.
const FileSuffix = "_FILE"

// Source tells where a resolved value came from.
type Source int

const (
	SourceNone Source = iota
	SourceEnv
	SourceFile
)

func (s Source) String() string {
	switch s {
	case SourceEnv:
		return "env"
	case SourceFile:
		return "file"
	default:
		return "absent"
	}
}

// LookupFunc reads one environment variable. The bool reports presence.
type LookupFunc func(name string) (string, bool)

// ReadFileFunc reads the file named by a <NAME>_FILE variable.
type ReadFileFunc func(path string) ([]byte, error)

// MapLookup returns a LookupFunc backed by m.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// dotenvLookup reads files with godotenv and consults them only for names
// the base lookup does not have.
func dotenvLookup(base LookupFunc, files []string) (LookupFunc, error) {
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, err
	}
	return func(name string) (string, bool) {
		if v, ok := base(name); ok {
			return v, ok
		}
		v, ok := vars[name]
		return v, ok
	}, nil
}

type outcome struct {
	text   string
	source Source
}

func (o outcome) present() bool { return o.source != SourceNone }

type resolver struct {
	lookup   LookupFunc
	readFile ReadFileFunc
}

func newResolver(lookup LookupFunc, readFile ReadFileFunc) resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if readFile == nil {
		readFile = os.ReadFile
	}
	return resolver{lookup: lookup, readFile: readFile}
}

// get treats a set-but-empty variable as unset.
func (r resolver) get(name string) (string, bool) {
	v, ok := r.lookup(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// resolve returns the first value found for name: the variable itself, then
// the file named by name+FileSuffix when fromFile is set. File contents are
// returned verbatim.
func (r resolver) resolve(name string, fromFile bool) (outcome, error) {
	if v, ok := r.get(name); ok {
		return outcome{text: v, source: SourceEnv}, nil
	}
	if !fromFile {
		return outcome{}, nil
	}

	fileVar := name + FileSuffix
	path, ok := r.get(fileVar)
	if !ok {
		return outcome{}, nil
	}

	data, err := r.readFile(path)
	if err != nil {
		return outcome{}, &FileReadError{Name: name, FileVar: fileVar, Path: path, Err: err}
	}
	return outcome{text: string(data), source: SourceFile}, nil
}
