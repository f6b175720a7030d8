package output

import (
	"strings"
	"time"

	"fanin/internal/aggregate"
)

type Status string

const (
	StatusResolved Status = "RESOLVED"
	StatusRejected Status = "REJECTED"
)

// Record is the outcome of one aggregation request. Value holds a string for
// text policies and a []string for list policies; it is absent when rejected.
type Record struct {
	RunID      string   `json:"run_id,omitempty"`
	Policy     string   `json:"policy"`
	Services   []string `json:"services"`
	Inputs     []string `json:"inputs"`
	Status     Status   `json:"status"`
	Kind       string   `json:"kind,omitempty"`
	Value      any      `json:"value,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// NewRecord describes a finished aggregation. err takes precedence over res.
func NewRecord(policy string, services, inputs []string, res aggregate.Result, err error, elapsed time.Duration) Record {
	r := Record{
		Policy:     policy,
		Services:   services,
		Inputs:     inputs,
		DurationMS: elapsed.Milliseconds(),
	}
	if r.Services == nil {
		r.Services = []string{}
	}
	if r.Inputs == nil {
		r.Inputs = []string{}
	}
	if err != nil {
		r.Status = StatusRejected
		r.Error = err.Error()
		return r
	}

	r.Status = StatusResolved
	r.Kind = string(res.Kind)
	if res.Kind == aggregate.KindList {
		values := res.Values
		if values == nil {
			values = []string{}
		}
		r.Value = values
	} else {
		r.Value = res.Text
	}
	return r
}

// Event is a lifecycle record for NDJSON streaming output:
// - run.started
// - aggregate.resolved / aggregate.rejected
// - run.finished
//
// JSON mode remains an aggregate of Record values.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	*Record
	ServiceCount int `json:"service_count,omitempty"`
	ExitCode     int `json:"exit_code,omitempty"`
}

func eventFromRecord(r Record) Event {
	return Event{
		Type:   "aggregate." + strings.ToLower(string(r.Status)),
		RunID:  r.RunID,
		Record: &r,
	}
}
