// Package scheduler runs background jobs on cron schedules. Its only job
// today keeps the affiliate access token warm so the first search after
// expiry does not pay for the token exchange.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/metrics"
)

const defaultWarmTimeout = 30 * time.Second

// Scheduler manages periodic token refresh.
type Scheduler struct {
	cron        *cron.Cron
	tokens      affiliate.TokenProvider
	timeout     time.Duration
	log         *slog.Logger
	warmEntryID cron.EntryID
}

// New creates a Scheduler that calls tokens.Token every interval. The
// TokenManager only fetches when its cached token has expired, so the job is
// cheap while the token is valid.
func New(
	tokens affiliate.TokenProvider,
	interval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	cl := cronLogger{log: log}
	c := cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	s := &Scheduler{
		cron:    c,
		tokens:  tokens,
		timeout: defaultWarmTimeout,
		log:     log,
	}

	id, err := c.AddFunc("@every "+interval.String(), s.runTokenWarm)
	if err != nil {
		return nil, err
	}
	s.warmEntryID = id

	return s, nil
}

// Start begins running scheduled tasks. It also warms the token once
// immediately so the first request finds it cached.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
	go s.runTokenWarm()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamps publishes the next run time of each job.
func (s *Scheduler) SyncNextRunTimestamps() {
	if next := s.cron.Entry(s.warmEntryID).Next; !next.IsZero() {
		metrics.SchedulerNextTokenWarmTimestamp.Set(float64(next.Unix()))
	}
}

// WarmToken runs the token job once.
func (s *Scheduler) WarmToken(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.tokens.Token(ctx); err != nil {
		metrics.TokenWarmRunsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.TokenWarmRunsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Scheduler) runTokenWarm() {
	defer s.SyncNextRunTimestamps()

	s.log.Debug("scheduled token warm starting")
	if err := s.WarmToken(context.Background()); err != nil {
		s.log.Error("scheduled token warm failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
