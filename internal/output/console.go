package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"fanin/internal/aggregate"
)

var (
	resolvedColor = color.New(color.FgGreen, color.Bold)
	rejectedColor = color.New(color.FgRed, color.Bold)
	policyColor   = color.New(color.Bold)
)

// ConsoleSink is the human-facing sink. In text mode it prints one line per
// Record and ignores lifecycle events; json and ndjson behave like EmitSink.
type ConsoleSink struct {
	writer io.Writer
	format string // "text", "json", "ndjson"
	mu     sync.Mutex
	enc    *structured
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	s := &ConsoleSink{writer: w, format: format}
	if format != "text" {
		// An unsupported format leaves enc nil and is reported on Write/Close.
		s.enc, _ = newStructured(w, format)
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.format == "text":
		r, ok := v.(Record)
		if !ok {
			return nil
		}
		if err := writeText(s.writer, r); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case s.enc != nil:
		return s.enc.write(v)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.format == "text":
		return nil
	case s.enc != nil:
		return s.enc.finish()
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// writeText renders
//
//	[RESOLVED] join: Hello:MSG World:MSG
//	[REJECTED] join: call 1 to World failed: boom
func writeText(w io.Writer, r Record) error {
	status := resolvedColor
	if r.Status == StatusRejected {
		status = rejectedColor
	}
	if _, err := status.Fprintf(w, "[%s]", r.Status); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, " "); err != nil {
		return err
	}
	if _, err := policyColor.Fprint(w, r.Policy); err != nil {
		return err
	}

	var detail string
	switch {
	case r.Status == StatusRejected:
		detail = r.Error
	case r.Kind == string(aggregate.KindList):
		values, _ := r.Value.([]string)
		detail = "[" + strings.Join(values, ", ") + "]"
	default:
		detail, _ = r.Value.(string)
	}
	_, err := fmt.Fprintf(w, ": %s\n", detail)
	return err
}
