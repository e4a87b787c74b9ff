package monitoring

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultSchedule probes the store once a minute.
const DefaultSchedule = "@every 1m"

// Checker runs scheduled store probes in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	schedule  string
}

// NewChecker creates a background checker. An empty schedule uses
// DefaultSchedule.
func NewChecker(collector *Collector, alerter *Alerter, schedule string) *Checker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		schedule:  schedule,
	}
}

// Run schedules the probe and blocks until ctx is cancelled. It returns an
// error only when the schedule cannot be parsed.
func (c *Checker) Run(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	sched := cron.New()
	if _, err := sched.AddFunc(c.schedule, func() { c.check(ctx, log) }); err != nil {
		return eris.Wrapf(err, "monitoring: parse schedule %q", c.schedule)
	}

	log.Info("starting store checker", zap.String("schedule", c.schedule))
	sched.Start()

	<-ctx.Done()
	<-sched.Stop().Done()
	log.Info("store checker stopped")
	return nil
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap := c.collector.Collect(ctx)

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: store healthy", zap.Duration("latency", snap.PingLatency))
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}
