package output

import (
	"errors"
	"fmt"
)

// Sink is a destination for Records and Events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans every write out to all of its sinks. A failing sink does not
// stop the others.
type Manager struct {
	sinks  []Sink
	closed bool
}

func NewManager(sinks ...Sink) (*Manager, error) {
	m := &Manager{}
	for _, s := range sinks {
		if err := m.AddSink(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

func (m *Manager) Write(v any) error {
	return m.each("write", func(s Sink) error { return s.Write(v) })
}

// Close closes every sink once. Later calls are no-ops.
func (m *Manager) Close() error {
	if m != nil && m.closed {
		return nil
	}
	err := m.each("close", func(s Sink) error { return s.Close() })
	if m != nil {
		m.closed = true
	}
	return err
}

func (m *Manager) each(op string, fn func(Sink) error) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if m.closed {
		return fmt.Errorf("output manager is closed")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("%s %T: %w", op, s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors on %s to sinks: %w", op, errors.Join(errs...))
	}
	return nil
}
