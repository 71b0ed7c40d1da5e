// Package gateway implements the upload, list and download lifecycle on top
// of the registry and the two storage tiers.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophbackup/internal/common"
	"github.com/dmitrijs2005/gophbackup/internal/logging"
	"github.com/dmitrijs2005/gophbackup/internal/server/blobstore"
	"github.com/dmitrijs2005/gophbackup/internal/server/codec"
	"github.com/dmitrijs2005/gophbackup/internal/server/keylock"
	"github.com/dmitrijs2005/gophbackup/internal/server/metrics"
	"github.com/dmitrijs2005/gophbackup/internal/server/registry"
)

type Service struct {
	registry *registry.Registry
	hot      blobstore.HotStore
	cold     blobstore.Store
	codec    codec.Codec
	locks    *keylock.Locker
	logger   logging.Logger
	metrics  metrics.Metrics
	now      func() time.Time
}

func NewService(reg *registry.Registry, hot blobstore.HotStore, cold blobstore.Store, c codec.Codec,
	locks *keylock.Locker, l logging.Logger, m metrics.Metrics) *Service {

	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{
		registry: reg,
		hot:      hot,
		cold:     cold,
		codec:    c,
		locks:    locks,
		logger:   l.With("module", "gateway"),
		metrics:  m,
		now:      time.Now,
	}
}

// Upload stores data as the hot copy of name, replacing any previous
// version in either tier.
func (s *Service) Upload(ctx context.Context, name string, data []byte) (err error) {
	defer func() { s.metrics.IncUploads(result(err)) }()

	if err := registry.ValidateName(name); err != nil {
		return err
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	prev, existed := s.registry.Get(name)

	if err := s.hot.Write(ctx, name, data); err != nil {
		return err
	}

	// a hot record already reads name -> name, so replacing its bytes needs
	// no registry change and cannot fail after the write
	if existed && prev.Tier == registry.TierHot {
		s.logger.Info(ctx, "file uploaded", "name", name, "size", len(data))
		return nil
	}

	if err := s.registry.Upsert(ctx, name, name); err != nil {
		s.discard(ctx, s.hot, name)
		return err
	}

	if existed && prev.Tier == registry.TierCold {
		s.discard(ctx, s.cold, prev.StorageName)
	}

	s.logger.Info(ctx, "file uploaded", "name", name, "size", len(data))
	return nil
}

// List returns every known logical name regardless of tier.
func (s *Service) List(ctx context.Context) []string {
	return s.registry.ListAllNames()
}

// Download returns the content of name, promoting it to the hot tier first
// when it is cold. A successful download refreshes the access time.
func (s *Service) Download(ctx context.Context, name string) (data []byte, err error) {
	defer func() { s.metrics.IncDownloads(result(err)) }()

	unlock := s.locks.Lock(name)
	defer unlock()

	rec, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}

	if rec.Tier == registry.TierCold {
		if err := s.promote(ctx, rec); err != nil {
			s.metrics.IncPromotions(metrics.ResultError)
			return nil, err
		}
		s.metrics.IncPromotions(metrics.ResultOK)
	}

	data, err = s.hot.Read(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: hot copy of %s is missing: %w", common.ErrBlobIO, name, err)
		}
		return nil, err
	}

	if err := s.hot.Touch(ctx, name, s.now()); err != nil {
		s.logger.Warn(ctx, "could not refresh access time", "name", name, "error", err)
	}

	return data, nil
}

// promote restores the hot copy of a cold record. The cold copy is removed
// only after the registry points at the hot one.
func (s *Service) promote(ctx context.Context, rec registry.FileRecord) error {
	packed, err := s.cold.Read(ctx, rec.StorageName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: cold copy %s is missing: %w", common.ErrBlobIO, rec.StorageName, err)
		}
		return err
	}

	dec, err := s.decoderFor(rec.StorageName)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrCompression, err)
	}

	data, err := dec.Decompress(packed)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrCompression, rec.StorageName, err)
	}

	if err := s.hot.Write(ctx, rec.LogicalName, data); err != nil {
		s.discard(ctx, s.hot, rec.LogicalName)
		return err
	}

	if err := s.registry.Upsert(ctx, rec.LogicalName, rec.LogicalName); err != nil {
		s.discard(ctx, s.hot, rec.LogicalName)
		return err
	}

	s.discard(ctx, s.cold, rec.StorageName)

	s.logger.Debug(ctx, "file promoted", "name", rec.LogicalName, "cold_name", rec.StorageName)
	return nil
}

// decoderFor picks the codec from the cold copy's suffix; the configured
// codec only decides how new demotions are written.
func (s *Service) decoderFor(storageName string) (codec.Codec, error) {
	if strings.HasSuffix(storageName, s.codec.Suffix()) {
		return s.codec, nil
	}
	return codec.ForStorageName(storageName)
}

// discard removes a copy left behind by a failed or superseded step. It
// still runs when the request context is already cancelled.
func (s *Service) discard(ctx context.Context, st blobstore.Store, name string) {
	if err := st.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn(ctx, "could not remove stale copy", "name", name, "error", err)
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, common.ErrorNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
