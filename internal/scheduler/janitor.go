// Package scheduler runs periodic housekeeping for the in-memory stores.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"seedwatch/pkg/logger"
)

// DefaultSchedule runs the janitor once a minute
const DefaultSchedule = "@every 1m"

// Job is one cleanup task. Run returns how many items it removed.
type Job struct {
	Name string
	Run  func() int
}

// Janitor runs cleanup jobs on a cron schedule
type Janitor struct {
	cron   *cron.Cron
	jobs   []Job
	logger *logger.Logger
}

// NewJanitor schedules jobs on schedule, a cron expression or @every descriptor
func NewJanitor(schedule string, log *logger.Logger, jobs ...Job) (*Janitor, error) {
	if len(jobs) == 0 {
		return nil, errors.New("janitor needs at least one job")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}

	j := &Janitor{jobs: jobs, logger: log}
	j.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins cron execution
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.WithField("jobs", len(j.jobs)).Info("Janitor started")
}

// Stop stops the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("Janitor stopped")
}

// RunOnce runs every job now and returns the removed counts by job name
func (j *Janitor) RunOnce() map[string]int {
	removed := make(map[string]int, len(j.jobs))
	for _, job := range j.jobs {
		n := job.Run()
		removed[job.Name] = n
		if n > 0 {
			j.logger.WithFields(map[string]interface{}{
				"job":     job.Name,
				"removed": n,
			}).Debug("Janitor sweep")
		}
	}
	return removed
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).Sugar().Errorw(msg, keysAndValues...)
}
