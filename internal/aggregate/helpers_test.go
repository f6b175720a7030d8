package aggregate

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
)

// mockService derives "id:UPPER(input)" unless configured otherwise.
type mockService struct {
	id        string
	delay     time.Duration
	err       error
	nilFuture bool
	panics    bool
	hang      bool
	calls     atomic.Int32
}

func newMockService(id string) *mockService {
	return &mockService{id: id}
}

func (m *mockService) withFailure(err error) *mockService {
	m.err = err
	return m
}

func (m *mockService) withDelay(d time.Duration) *mockService {
	m.delay = d
	return m
}

func (m *mockService) withNilFuture() *mockService {
	m.nilFuture = true
	return m
}

func (m *mockService) withPanic() *mockService {
	m.panics = true
	return m
}

// withHang makes Retrieve return a future that never resolves.
func (m *mockService) withHang() *mockService {
	m.hang = true
	return m
}

func (m *mockService) ID() string {
	return m.id
}

func (m *mockService) Retrieve(ctx context.Context, input string) *Future {
	m.calls.Add(1)
	switch {
	case m.panics:
		panic("mock service exploded")
	case m.nilFuture:
		return nil
	case m.hang:
		return NewFuture()
	case m.err != nil && m.delay == 0:
		return Failed(m.err)
	}
	return Go(func() (string, error) {
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		if m.err != nil {
			return "", m.err
		}
		return m.id + ":" + strings.ToUpper(input), nil
	})
}

func services(ms ...*mockService) []Service {
	out := make([]Service, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}
