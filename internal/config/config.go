package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Service kinds understood by internal/service.
const (
	KindEcho   = "echo"
	KindFail   = "fail"
	KindHTTP   = "http"
	KindGitHub = "github"
)

type Config struct {
	// MAINTAINER NOTE: fields here are bound to flags in internal/cli/run.go and
	// internal/cli/serve.go, and to keys of the YAML run file (see LoadFile).
	Run      Run           `yaml:"run"`
	Services []ServiceSpec `yaml:"services"`
	Output   Output        `yaml:"output"`
	Runtime  Runtime       `yaml:"runtime"`
	Server   Server        `yaml:"server"`
}

type Run struct {
	// Policy is the aggregation policy ID (see --policy and `fanin policies list`).
	Policy string `yaml:"policy"`

	// Inputs are the request inputs (see --input, repeatable).
	// Shared-input policies take exactly one; per-service policies take one per
	// service, or a single input that is broadcast to every service.
	Inputs []string `yaml:"inputs"`

	// Fallback replaces failed values under the fail-soft policy (see --fallback).
	Fallback string `yaml:"fallback"`
}

// ServiceSpec describes one backend service. On the command line it is written
// as id[:kind[:arg]]; kind defaults to echo.
type ServiceSpec struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`

	// Arg is kind specific:
	//   echo:   maximum random delay before resolving (e.g. 50ms)
	//   fail:   failure message
	//   http:   base URL of a `fanin serve` instance
	//   github: GitHub API base URL (optional)
	Arg string `yaml:"arg"`

	// Remote is the service ID on the remote server for http services.
	// Defaults to ID.
	Remote string `yaml:"remote"`
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string `yaml:"console_format"`

	// Out writes structured output to this path (see --out).
	Out string `yaml:"out"`

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string `yaml:"out_format"`

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string `yaml:"emit"`

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool `yaml:"no_console"`
}

type Runtime struct {
	// Timeout bounds a whole aggregation (see --timeout). Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// Verbose enables debug logging and unscrubbed GitHub errors.
	Verbose bool `yaml:"verbose"`

	// LogMode selects the zap encoder: dev or prod.
	LogMode string `yaml:"log_mode"`
}

type Server struct {
	// Addr is the listen address for `fanin serve` (see --addr).
	Addr string `yaml:"addr"`

	// RateLimit caps aggregate requests per second. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the limiter burst size. Defaults to 1 when RateLimit is set.
	RateBurst int `yaml:"rate_burst"`
}

func New() *Config {
	return &Config{
		Run: Run{
			Policy: "join",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Timeout: 30 * time.Second,
			LogMode: "dev",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Validate normalizes and checks everything shared by `run` and `serve`.
func (c *Config) Validate() error {
	c.Output.Emit = splitCommaList(c.Output.Emit)

	seen := make(map[string]bool, len(c.Services))
	for i := range c.Services {
		s := &c.Services[i]
		if err := s.normalize(); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate service id %q", s.ID)
		}
		seen[s.ID] = true
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			case "":
				return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
			default:
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	c.Runtime.LogMode = normalizeEnumValue(c.Runtime.LogMode)
	if c.Runtime.LogMode == "" {
		c.Runtime.LogMode = "dev"
	}
	if c.Runtime.LogMode != "dev" && c.Runtime.LogMode != "prod" {
		return fmt.Errorf("unsupported --log-mode: %s (must be one of: dev, prod)", c.Runtime.LogMode)
	}

	// Server validation
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.RateLimit < 0 {
		return errors.New("--rate-limit must be >= 0")
	}
	if c.Server.RateBurst < 0 {
		return errors.New("--rate-burst must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		c.Server.RateBurst = 1
	}

	return nil
}

// ValidateRun runs Validate and then checks the one-shot aggregation request.
// Input-count mismatches are left to the aggregator, which rejects them.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Run.Policy = normalizeEnumValue(c.Run.Policy)
	if c.Run.Policy == "" {
		return errors.New("--policy is required")
	}
	return nil
}

// ParseServiceSpec parses id[:kind[:arg]]. The arg may itself contain colons
// (URLs, durations).
func ParseServiceSpec(raw string) (ServiceSpec, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
	spec := ServiceSpec{ID: parts[0]}
	if len(parts) > 1 {
		spec.Kind = parts[1]
	}
	if len(parts) > 2 {
		spec.Arg = parts[2]
	}
	if err := spec.normalize(); err != nil {
		return ServiceSpec{}, fmt.Errorf("invalid --service %q: %w", raw, err)
	}
	return spec, nil
}

// ParseServiceSpecs parses repeated --service values. Values are not
// comma-split since fail messages may contain commas.
func ParseServiceSpecs(values []string) ([]ServiceSpec, error) {
	out := make([]ServiceSpec, 0, len(values))
	for _, raw := range values {
		spec, err := ParseServiceSpec(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

func (s *ServiceSpec) normalize() error {
	s.ID = strings.TrimSpace(s.ID)
	s.Kind = normalizeEnumValue(s.Kind)
	s.Arg = strings.TrimSpace(s.Arg)
	s.Remote = strings.TrimSpace(s.Remote)

	if s.ID == "" {
		return errors.New("service id is required")
	}
	if strings.ContainsAny(s.ID, "/ \t") {
		return fmt.Errorf("service id %q must not contain '/' or whitespace", s.ID)
	}
	if s.Kind == "" {
		s.Kind = KindEcho
	}

	switch s.Kind {
	case KindEcho:
		if s.Arg != "" {
			d, err := time.ParseDuration(s.Arg)
			if err != nil || d < 0 {
				return fmt.Errorf("service %s: echo delay must be a non-negative duration, got %q", s.ID, s.Arg)
			}
		}
	case KindFail:
	case KindHTTP:
		if err := validateBaseURL(s.Arg); err != nil {
			return fmt.Errorf("service %s: %w", s.ID, err)
		}
		if s.Remote == "" {
			s.Remote = s.ID
		}
	case KindGitHub:
		if s.Arg != "" {
			if err := validateBaseURL(s.Arg); err != nil {
				return fmt.Errorf("service %s: %w", s.ID, err)
			}
		}
	default:
		return fmt.Errorf("service %s: unsupported kind %q (must be one of: echo, fail, http, github)", s.ID, s.Kind)
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
