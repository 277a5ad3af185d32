package envconf

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceConfig struct {
	APIKey string `env:",file"`
	Port   uint16 `envDefault:"8080"`
}

func TestLoadSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key")
	mustWrite(t, key, "secret123")

	cfg, err := FromEnv[serviceConfig](WithLookup(MapLookup(map[string]string{
		"API_KEY_FILE": key,
	})))
	require.NoError(t, err)
	assert.Equal(t, serviceConfig{APIKey: "secret123", Port: 8080}, cfg)
}

func TestLoadDirectVariableWinsOverFile(t *testing.T) {
	cfg, err := FromEnv[serviceConfig](
		WithLookup(MapLookup(map[string]string{
			"API_KEY":      "dev",
			"API_KEY_FILE": "/does/not/exist",
			"PORT":         "3000",
		})),
		WithReadFile(noFileReads(t)),
	)
	require.NoError(t, err)
	assert.Equal(t, serviceConfig{APIKey: "dev", Port: 3000}, cfg)
}

func TestLoadUnreadableSecretFile(t *testing.T) {
	_, err := FromEnv[serviceConfig](WithLookup(MapLookup(map[string]string{
		"API_KEY_FILE": filepath.Join(t.TempDir(), "missing"),
	})))

	var fe *FileReadError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, "APIKey", fe.Field)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "API_KEY_FILE")
}

func TestLoadJSONConverter(t *testing.T) {
	type cfg struct {
		Tags []string `env:",conv=json"`
	}

	got, err := FromEnv[cfg](WithLookup(MapLookup(map[string]string{"TAGS": `["a","b"]`})))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	_, err = FromEnv[cfg](WithLookup(MapLookup(map[string]string{"TAGS": "not-json"})))
	var ce *ConversionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "TAGS", ce.Name)
	assert.Equal(t, "json", ce.Converter)
	assert.Equal(t, "not-json", ce.Text)
	assert.Contains(t, err.Error(), `"TAGS"`)
	assert.Contains(t, err.Error(), "[]string")
}

func TestLoadAggregatesFailures(t *testing.T) {
	type cfg struct {
		DatabaseURL string
		APIKey      string `env:",file"`
		Port        int
		Name        string `envDefault:"svc"`
	}

	var c cfg
	err := Load(&c, WithLookup(MapLookup(map[string]string{"PORT": "http"})))
	require.Error(t, err)

	var agg *AggregateError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 3)

	var missing *MissingError
	require.True(t, errors.As(agg.Errors[0], &missing))
	assert.Equal(t, "DATABASE_URL", missing.Name)
	require.True(t, errors.As(agg.Errors[1], &missing))
	assert.Equal(t, "API_KEY", missing.Name)
	assert.True(t, missing.FromFile)

	var ce *ConversionError
	require.True(t, errors.As(agg.Errors[2], &ce))
	assert.Equal(t, "PORT", ce.Name)

	assert.ErrorIs(t, err, ErrMissing)
	msg := err.Error()
	assert.Contains(t, msg, "3 fields failed")
	assert.Contains(t, msg, `"DATABASE_URL" is required but not set`)
	assert.Contains(t, msg, `also checked "API_KEY_FILE"`)
	assert.Contains(t, msg, `value "http" as int`)

	assert.Equal(t, cfg{}, c, "config must stay untouched on failure")
}

func TestLoadTwoMissingRequired(t *testing.T) {
	type cfg struct {
		Host string
		User string
	}

	err := Load(&cfg{}, WithLookup(MapLookup(nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOST")
	assert.Contains(t, err.Error(), "USER")
}

func TestLoadSingleFailureMessage(t *testing.T) {
	type cfg struct{ Host string }

	err := Load(&cfg{}, WithLookup(MapLookup(nil)))
	assert.EqualError(t, err, `envconf: environment variable "HOST" is required but not set`)
}

func TestLoadDefaultsAndOptionals(t *testing.T) {
	type cfg struct {
		Host     string        `envDefault:"127.0.0.1"`
		Retries  int           `env:",default"`
		Interval time.Duration `envDefault:"1m"`
		Hosts    []string      `envDefault:"a,b"`
		Version  *string
		Limit    *int `env:",file"`
		Token    *string
	}

	token := "t0k"
	plan, err := Compile(cfg{}, WithLookup(MapLookup(map[string]string{"TOKEN": token})))
	require.NoError(t, err)

	var c cfg
	require.NoError(t, plan.Resolve(&c))
	assert.Equal(t, "127.0.0.1", c.Host)
	assert.Equal(t, 0, c.Retries)
	assert.Equal(t, time.Minute, c.Interval)
	assert.Equal(t, []string{"a", "b"}, c.Hosts)
	assert.Nil(t, c.Version)
	assert.Nil(t, c.Limit)
	require.NotNil(t, c.Token)
	assert.Equal(t, token, *c.Token)

	// Defaults are copied, not shared between resolutions.
	c.Hosts[0] = "changed"
	var again cfg
	require.NoError(t, plan.Resolve(&again))
	assert.Equal(t, []string{"a", "b"}, again.Hosts)
}

func TestLoadOptionalConversionError(t *testing.T) {
	type cfg struct {
		Limit *int
	}

	err := Load(&cfg{}, WithLookup(MapLookup(map[string]string{"LIMIT": "lots"})))
	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "int", ce.Type.String())
}

func TestLoadOptionalWithConverter(t *testing.T) {
	type cfg struct {
		Metadata *map[string]string `env:",conv=json"`
	}

	c, err := FromEnv[cfg](WithLookup(MapLookup(nil)))
	require.NoError(t, err)
	assert.Nil(t, c.Metadata)

	c, err = FromEnv[cfg](WithLookup(MapLookup(map[string]string{"METADATA": `{"env":"prod"}`})))
	require.NoError(t, err)
	require.NotNil(t, c.Metadata)
	assert.Equal(t, map[string]string{"env": "prod"}, *c.Metadata)
}

func TestLoadPrefixAndNames(t *testing.T) {
	type cfg struct {
		DatabaseURL string `env:"DB_URL"`
		Port        int
	}

	c, err := FromEnv[cfg](WithPrefix("APP_"), WithLookup(MapLookup(map[string]string{
		"APP_DB_URL": "postgres://localhost/db",
		"APP_PORT":   "5432",
		"DB_URL":     "wrong",
	})))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/db", c.DatabaseURL)
	assert.Equal(t, 5432, c.Port)
}

func TestLoadFileConversionErrorNamesFileVariable(t *testing.T) {
	type cfg struct {
		Port int `env:",file"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "port")
	mustWrite(t, path, "8080\n")

	err := Load(&cfg{}, WithLookup(MapLookup(map[string]string{"PORT_FILE": path})))
	var ce *ConversionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, SourceFile, ce.Source)
	assert.Contains(t, err.Error(), `read from "PORT_FILE"`)
}

func TestLoadCustomConverterTrimsFile(t *testing.T) {
	type cfg struct {
		Port int `env:",file,conv=trimmed"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "port")
	mustWrite(t, path, "8080\n")

	trimmed := ConverterFunc(func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	})
	c, err := FromEnv[cfg](
		WithConverter("trimmed", trimmed),
		WithLookup(MapLookup(map[string]string{"PORT_FILE": path})),
	)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
}

func TestLoadProcessEnvironment(t *testing.T) {
	type cfg struct {
		Server string
		Debug  bool `env:",default"`
	}

	t.Setenv("ENVCONF_TEST_SERVER", "only-env")
	t.Setenv("ENVCONF_TEST_DEBUG", "true")

	var c cfg
	require.NoError(t, Load(&c, WithPrefix("ENVCONF_TEST_")))
	assert.Equal(t, cfg{Server: "only-env", Debug: true}, c)

	// Every call observes the current environment.
	t.Setenv("ENVCONF_TEST_SERVER", "changed")
	require.NoError(t, Load(&c, WithPrefix("ENVCONF_TEST_")))
	assert.Equal(t, "changed", c.Server)
}

func TestLoadDotenv(t *testing.T) {
	type cfg struct {
		Host string
		Port int
	}

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	mustWrite(t, path, "HOST=from-dotenv\nPORT=7000\n")

	c, err := FromEnv[cfg](WithDotenv(path), WithLookup(MapLookup(map[string]string{"HOST": "from-env"})))
	require.NoError(t, err)
	assert.Equal(t, cfg{Host: "from-env", Port: 7000}, c)

	_, err = FromEnv[cfg](WithDotenv(filepath.Join(dir, "missing.env")), WithLookup(MapLookup(nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read dotenv")
}

func TestLoadValidationErrors(t *testing.T) {
	if err := Load(nil); err == nil || !strings.Contains(err.Error(), "must not be nil") {
		t.Fatalf("expected nil config error, got %v", err)
	}

	if err := Load(struct{}{}); err == nil || !strings.Contains(err.Error(), "non-nil pointer") {
		t.Fatalf("expected pointer error, got %v", err)
	}

	var notStruct = new(int)
	if err := Load(notStruct); err == nil || !strings.Contains(err.Error(), "pointer to struct") {
		t.Fatalf("expected struct pointer error, got %v", err)
	}

	var nilPtr *serviceConfig
	if err := Load(nilPtr); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestResolveWrongType(t *testing.T) {
	plan, err := Compile(serviceConfig{})
	require.NoError(t, err)

	var other struct{ APIKey string }
	assert.ErrorIs(t, plan.Resolve(&other), ErrInvalidTarget)
}

func TestLoadSkipsUnexportedAndIgnored(t *testing.T) {
	type cfg struct {
		visible string
		Value   string
		Skip    string `env:"-"`
	}

	var c cfg
	err := Load(&c, WithLookup(MapLookup(map[string]string{
		"VALUE":   "set",
		"VISIBLE": "should-not-set",
		"SKIP":    "should-not-set",
	})))
	require.NoError(t, err)
	assert.Equal(t, cfg{Value: "set"}, c)
}

func TestLoadEmbeddedStruct(t *testing.T) {
	type cfg struct {
		Common
		Name string
	}

	c, err := FromEnv[cfg](WithLookup(MapLookup(map[string]string{
		"NAME":      "svc",
		"LOG_LEVEL": "debug",
	})))
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "svc", c.Name)
}

func TestLoadSkippedEmbeddedStruct(t *testing.T) {
	type secrets struct {
		Secret string
		Inner  struct{ Token string } `env:",conv=json"`
	}
	type cfg struct {
		secrets `env:"-"`
		*Common `env:"-"`
		Name    string
	}

	plan, err := Compile(cfg{})
	require.NoError(t, err)
	require.Len(t, plan.Fields(), 1)
	assert.Equal(t, "NAME", plan.Fields()[0].Name)

	c, err := FromEnv[cfg](WithLookup(MapLookup(map[string]string{
		"NAME":   "x",
		"SECRET": "ignored",
	})))
	require.NoError(t, err)
	assert.Equal(t, "x", c.Name)
	assert.Empty(t, c.Secret)
	assert.Nil(t, c.Common)
}

func TestLoadConverterFunc(t *testing.T) {
	type cfg struct {
		Port int `env:",file,conv=trimmed"`
	}

	c, err := FromEnv[cfg](
		WithConverterFunc("trimmed", func(s string) (int, error) {
			return strconv.Atoi(strings.TrimSpace(s))
		}),
		WithLookup(MapLookup(map[string]string{"PORT": " 8080 "})),
	)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
}

func TestLoadLogsSources(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	dir := t.TempDir()
	key := filepath.Join(dir, "key")
	mustWrite(t, key, "secret123")

	_, err := FromEnv[serviceConfig](WithLogger(logger), WithLookup(MapLookup(map[string]string{"API_KEY_FILE": key})))
	require.NoError(t, err)

	sources := map[string]any{}
	for _, e := range hook.AllEntries() {
		if e.Message == "resolved config field" {
			sources[e.Data["env"].(string)] = e.Data["source"]
		}
		for _, v := range e.Data {
			assert.NotEqual(t, "secret123", v, "values must not be logged")
		}
	}
	assert.Equal(t, map[string]any{"API_KEY": "file", "PORT": "default"}, sources)

	hook.Reset()
	_, err = FromEnv[serviceConfig](WithLogger(logger), WithLookup(MapLookup(nil)))
	require.Error(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 1, hook.LastEntry().Data["failed"])
}

func TestPlanConcurrentResolve(t *testing.T) {
	plan, err := Compile(serviceConfig{}, WithLookup(MapLookup(map[string]string{"API_KEY": "k", "PORT": "1"})))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var c serviceConfig
			if err := plan.Resolve(&c); err != nil {
				errs <- err
				return
			}
			if c.APIKey != "k" || c.Port != 1 {
				errs <- errors.New("unexpected config")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
