// Package tiering demotes idle hot files to the compressed cold tier.
package tiering

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophbackup/internal/common"
	"github.com/dmitrijs2005/gophbackup/internal/logging"
	"github.com/dmitrijs2005/gophbackup/internal/server/blobstore"
	"github.com/dmitrijs2005/gophbackup/internal/server/codec"
	"github.com/dmitrijs2005/gophbackup/internal/server/keylock"
	"github.com/dmitrijs2005/gophbackup/internal/server/metrics"
	"github.com/dmitrijs2005/gophbackup/internal/server/registry"
)

const (
	DefaultIdleThreshold = 30 * time.Second
	DefaultPollInterval  = 60 * time.Second
)

// Options are the scheduler policy knobs. Zero values fall back to defaults.
type Options struct {
	IdleThreshold time.Duration
	PollInterval  time.Duration
}

// CycleResult summarizes one pass over the hot files.
type CycleResult struct {
	Scanned int
	Demoted int
	Skipped int
	Failed  int
}

type outcome int

const (
	outcomeDemoted outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Scheduler periodically compresses hot files whose last access is older
// than the idle threshold. Per-name locks keep it from racing the gateway.
type Scheduler struct {
	registry *registry.Registry
	hot      blobstore.HotStore
	cold     blobstore.Store
	codec    codec.Codec
	locks    *keylock.Locker
	logger   logging.Logger
	metrics  metrics.Metrics

	idleThreshold time.Duration
	pollInterval  time.Duration
	now           func() time.Time
}

func NewScheduler(reg *registry.Registry, hot blobstore.HotStore, cold blobstore.Store, c codec.Codec,
	locks *keylock.Locker, l logging.Logger, m metrics.Metrics, opts Options) *Scheduler {

	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if m == nil {
		m = metrics.Noop{}
	}

	return &Scheduler{
		registry:      reg,
		hot:           hot,
		cold:          cold,
		codec:         c,
		locks:         locks,
		logger:        l.With("module", "tiering"),
		metrics:       m,
		idleThreshold: opts.IdleThreshold,
		pollInterval:  opts.PollInterval,
		now:           time.Now,
	}
}

// Run executes a cycle right away and then every poll interval until ctx is
// cancelled. A cycle in progress stops between files.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info(ctx, "Starting tiering scheduler",
		"idle_threshold", s.idleThreshold.String(), "poll_interval", s.pollInterval.String(), "codec", s.codec.Name())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping tiering scheduler...")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle inspects every hot file once and demotes the idle ones.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	var res CycleResult

	for _, name := range s.registry.ListHotNames() {
		if ctx.Err() != nil {
			break
		}
		res.Scanned++

		out, err := s.demote(ctx, name)
		switch out {
		case outcomeDemoted:
			res.Demoted++
			s.metrics.IncDemotions(metrics.ResultOK)
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
			s.metrics.IncDemotions(metrics.ResultError)
			s.logger.Error(ctx, "demotion failed", "name", name, "error", err)
		}
	}

	s.metrics.ObserveCycle(res.Scanned, res.Demoted)
	if res.Demoted > 0 || res.Failed > 0 {
		s.logger.Info(ctx, "tiering cycle finished",
			"scanned", res.Scanned, "demoted", res.Demoted, "skipped", res.Skipped, "failed", res.Failed)
	}
	return res
}

// demote moves one file to the cold tier. The registry flips to cold only
// after the cold copy is written, and the hot copy is removed only after the
// registry change is persisted.
func (s *Scheduler) demote(ctx context.Context, name string) (outcome, error) {
	unlock, ok := s.locks.TryLock(name)
	if !ok {
		s.logger.Debug(ctx, "file busy, skipping", "name", name)
		return outcomeSkipped, nil
	}
	defer unlock()

	rec, ok := s.registry.Get(name)
	if !ok || rec.Tier != registry.TierHot {
		return outcomeSkipped, nil
	}

	lastAccess, err := s.hot.LastAccess(ctx, name)
	if err != nil {
		return outcomeFailed, err
	}
	if idle := s.now().Sub(lastAccess); idle <= s.idleThreshold {
		return outcomeSkipped, nil
	}

	data, err := s.hot.Read(ctx, name)
	if err != nil {
		return outcomeFailed, err
	}

	packed, err := s.codec.Compress(data)
	if err != nil {
		return outcomeFailed, fmt.Errorf("%w: %w", common.ErrCompression, err)
	}

	coldName := name + s.codec.Suffix()
	if err := s.cold.Write(ctx, coldName, packed); err != nil {
		s.discardCold(ctx, coldName)
		return outcomeFailed, err
	}

	if err := s.registry.Upsert(ctx, name, coldName); err != nil {
		s.discardCold(ctx, coldName)
		return outcomeFailed, err
	}

	if err := s.hot.Delete(ctx, name); err != nil {
		// the record is already cold; promotion overwrites the stray copy
		s.logger.Warn(ctx, "demoted file left a hot copy behind", "name", name, "error", err)
	}

	s.logger.Debug(ctx, "file demoted", "name", name, "cold_name", coldName,
		"size", len(data), "compressed_size", len(packed))
	return outcomeDemoted, nil
}

// discardCold runs even after shutdown has cancelled ctx.
func (s *Scheduler) discardCold(ctx context.Context, coldName string) {
	if err := s.cold.Delete(context.WithoutCancel(ctx), coldName); err != nil {
		s.logger.Warn(ctx, "could not remove cold copy", "cold_name", coldName, "error", err)
	}
}
