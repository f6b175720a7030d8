package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.ValidateRun())

	assert.Equal(t, "join", cfg.Run.Policy)
	assert.Equal(t, "text", cfg.Output.ConsoleFormat)
	assert.Equal(t, 30*time.Second, cfg.Runtime.Timeout)
	assert.Equal(t, "dev", cfg.Runtime.LogMode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestParseServiceSpec(t *testing.T) {
	tests := []struct {
		raw       string
		want      ServiceSpec
		expectErr string
	}{
		{raw: "Hello", want: ServiceSpec{ID: "Hello", Kind: KindEcho}},
		{raw: "a:echo:25ms", want: ServiceSpec{ID: "a", Kind: KindEcho, Arg: "25ms"}},
		{raw: "b:FAIL", want: ServiceSpec{ID: "b", Kind: KindFail}},
		{raw: "b:fail:down: try later", want: ServiceSpec{ID: "b", Kind: KindFail, Arg: "down: try later"}},
		{raw: "r:http:http://localhost:8080", want: ServiceSpec{ID: "r", Kind: KindHTTP, Arg: "http://localhost:8080", Remote: "r"}},
		{raw: "gh:github", want: ServiceSpec{ID: "gh", Kind: KindGitHub}},
		{raw: "", expectErr: "service id is required"},
		{raw: ":echo", expectErr: "service id is required"},
		{raw: "a/b", expectErr: "must not contain"},
		{raw: "a:grpc", expectErr: "unsupported kind"},
		{raw: "a:echo:soon", expectErr: "non-negative duration"},
		{raw: "a:echo:-1s", expectErr: "non-negative duration"},
		{raw: "r:http", expectErr: "base URL is required"},
		{raw: "r:http:ftp://host", expectErr: "scheme must be http or https"},
		{raw: "r:http:http://", expectErr: "missing host"},
		{raw: "gh:github:nope", expectErr: "scheme must be http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseServiceSpec(tt.raw)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServiceSpecs_KeepsCommas(t *testing.T) {
	got, err := ParseServiceSpecs([]string{"a", "b:fail:no, really"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "no, really", got[1].Arg)
}

func TestValidate_RejectsDuplicateServiceIDs(t *testing.T) {
	cfg := New()
	cfg.Services = []ServiceSpec{{ID: "a"}, {ID: " a "}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate service id "a"`)
}

func TestValidate_NormalizesEmit(t *testing.T) {
	cfg := New()
	cfg.Output.Emit = []string{"JSON, ndjson", ",,"}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"json", "ndjson"}, cfg.Output.Emit)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "console format", mutate: func(c *Config) { c.Output.ConsoleFormat = "xml" }, want: "unsupported --console-format"},
		{name: "empty console format", mutate: func(c *Config) { c.Output.ConsoleFormat = " " }, want: "--console-format must be one of"},
		{name: "emit", mutate: func(c *Config) { c.Output.Emit = []string{"yaml"} }, want: "unsupported --emit value"},
		{name: "out without ext", mutate: func(c *Config) { c.Output.Out = "result" }, want: "missing extension"},
		{name: "out unknown ext", mutate: func(c *Config) { c.Output.Out = "result.txt" }, want: `".txt"`},
		{name: "out format", mutate: func(c *Config) { c.Output.Out = "r"; c.Output.OutFormat = "csv" }, want: "unsupported output format"},
		{name: "timeout", mutate: func(c *Config) { c.Runtime.Timeout = 0 }, want: "--timeout must be > 0"},
		{name: "log mode", mutate: func(c *Config) { c.Runtime.LogMode = "debug" }, want: "unsupported --log-mode"},
		{name: "rate limit", mutate: func(c *Config) { c.Server.RateLimit = -1 }, want: "--rate-limit"},
		{name: "rate burst", mutate: func(c *Config) { c.Server.RateBurst = -1 }, want: "--rate-burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_InfersOutFormat(t *testing.T) {
	for _, tt := range []struct{ out, want string }{
		{"result.json", "json"},
		{"RESULT.NDJSON", "ndjson"},
	} {
		cfg := New()
		cfg.Output.Out = tt.out
		require.NoError(t, cfg.Validate())
		assert.Equal(t, tt.want, cfg.Output.OutFormat)
	}
}

func TestValidate_DefaultsRateBurst(t *testing.T) {
	cfg := New()
	cfg.Server.RateLimit = 5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Server.RateBurst)
}

func TestValidateRun_NormalizesPolicy(t *testing.T) {
	cfg := New()
	cfg.Run.Policy = "  Fail-Soft "
	require.NoError(t, cfg.ValidateRun())
	assert.Equal(t, "fail-soft", cfg.Run.Policy)

	cfg.Run.Policy = ""
	assert.ErrorContains(t, cfg.ValidateRun(), "--policy is required")
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
run:
  policy: fail-soft
  inputs: [x, y]
  fallback: FallBack
services:
  - id: A
  - id: B
    kind: fail
    arg: down for maintenance
  - id: C
    kind: http
    arg: http://127.0.0.1:9000
    remote: A
runtime:
  timeout: 5s
`))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateRun())

	assert.Equal(t, "fail-soft", cfg.Run.Policy)
	assert.Equal(t, []string{"x", "y"}, cfg.Run.Inputs)
	assert.Equal(t, "FallBack", cfg.Run.Fallback)
	require.Len(t, cfg.Services, 3)
	assert.Equal(t, KindEcho, cfg.Services[0].Kind)
	assert.Equal(t, "down for maintenance", cfg.Services[1].Arg)
	assert.Equal(t, "A", cfg.Services[2].Remote)
	assert.Equal(t, 5*time.Second, cfg.Runtime.Timeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, "text", cfg.Output.ConsoleFormat)
}

func TestDecode_EmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("run:\n  polcy: join\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polcy")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  policy: partial\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "partial", cfg.Run.Policy)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "open config file")
}
