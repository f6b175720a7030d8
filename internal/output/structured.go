package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// structured is the json/ndjson encoding shared by the console, emit and file
// sinks. Callers hold their own lock.
//
//   - json: collects Records and writes one indented array on finish
//   - ndjson: streams one Event per line, flushing after each
type structured struct {
	w       io.Writer
	format  string
	records []Record
}

func newStructured(w io.Writer, format string) (*structured, error) {
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported structured format: %s", format)
	}
	return &structured{w: w, format: format, records: []Record{}}, nil
}

func (s *structured) write(v any) error {
	if s.format == "json" {
		// Lifecycle events are not part of the JSON aggregate.
		if r, ok := v.(Record); ok {
			s.records = append(s.records, r)
		}
		return nil
	}

	var e Event
	switch t := v.(type) {
	case Event:
		e = t
	case Record:
		e = eventFromRecord(t)
	default:
		return nil
	}
	if err := json.NewEncoder(s.w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

func (s *structured) finish() error {
	if s.format != "json" {
		return nil
	}
	encoder := json.NewEncoder(s.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.records); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

// flushIfPossible flushes buffered writers (bufio.Writer, file sinks) so
// streamed lines are visible to readers as soon as they are written.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
