// Package job describes batch search work passed between the service, the
// queue and the workers.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/search"
)

// Job is one search run.
type Job struct {
	ID       string
	Name     string
	Strategy string
	Params   search.Params
	Request  search.Request
}

// New returns a job with a fresh ID.
func New(name, strategy string, params search.Params, req search.Request) Job {
	id := uuid.NewString()
	if name == "" {
		name = strategy + "-" + id[:8]
	}
	return Job{ID: id, Name: name, Strategy: strategy, Params: params, Request: req}
}

// Outcome is the result of one job. A failed job carries Err and no teams;
// other jobs in the same batch are unaffected.
type Outcome struct {
	JobID    string
	Name     string
	Strategy string
	Teams    []search.Ranked
	Err      error
	Duration time.Duration
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Best returns the top team, if any.
func (o Outcome) Best() (model.Team, scoring.Result, bool) {
	if len(o.Teams) == 0 {
		return nil, scoring.Result{}, false
	}
	return o.Teams[0].Team, o.Teams[0].Result, true
}
