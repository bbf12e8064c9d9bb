// Package schedule runs a recurring job on a cron expression.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Standard 5-field expressions (minute hour day month weekday) plus
// descriptors such as @daily or @every 6h
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

// Scheduler triggers a single job on its schedule. A trigger that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// Parse validates a schedule expression
func Parse(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// New creates a scheduler running job on spec. It is not started.
func New(spec string, job Job) (*Scheduler, error) {
	schedule, err := Parse(spec)
	if err != nil {
		return nil, err
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		spec:     spec,
		schedule: schedule,
		cron:     c,
		ctx:      ctx,
		cancel:   cancel,
	}

	c.Schedule(schedule, cron.FuncJob(func() {
		start := time.Now()
		logrus.Infof("Scheduled job triggered (%s)", spec)
		if err := job(s.ctx); err != nil {
			logrus.Warnf("Scheduled job failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
			return
		}
		logrus.Infof("Scheduled job finished in %v, next run at %s",
			time.Since(start).Round(time.Millisecond), s.Next().Format(time.RFC3339))
	}))

	return s, nil
}

// Start begins triggering the job
func (s *Scheduler) Start() {
	s.cron.Start()
	logrus.Infof("Schedule %q started, first run at %s", s.spec, s.Next().Format(time.RFC3339))
}

// Next returns the next activation time
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(time.Now())
}

// Stop cancels a running job and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logrus.Info("Schedule stopped")
}
