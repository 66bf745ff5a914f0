package cron

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Job is a unit of scheduled work executed by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	nextRun time.Time
}

// Registry holds jobs together with the cadence each one runs at.
type Registry struct {
	entries map[string]*entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register schedules job to run every interval. A job is due on the first
// tick after registration.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	name := job.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	r.entries[name] = &entry{job: job, every: every}
	r.order = append(r.order, name)
	return nil
}

// Due returns the jobs whose next run is at or before now and pushes their
// next run forward by one interval.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, name := range r.order {
		e := r.entries[name]
		if e.nextRun.After(now) {
			continue
		}
		due = append(due, e.job)
		e.nextRun = now.Add(e.every)
	}
	return due
}

// Names lists registered jobs alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	names = append(names, r.order...)
	sort.Strings(names)
	return names
}
