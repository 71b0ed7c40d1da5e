// Package registry is the source of truth for which logical files exist and
// where their single physical copy lives. Every mutation is persisted as a
// full snapshot before it is acknowledged.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophbackup/internal/common"
)

// SnapshotStore persists complete registry snapshots.
type SnapshotStore interface {
	// Load returns the last saved snapshot; nothing saved yet is an empty one.
	Load(ctx context.Context) ([]FileRecord, error)
	// Save replaces the persisted snapshot with records.
	Save(ctx context.Context, records []FileRecord) error
}

// Registry maps logical names to FileRecords. Readers run concurrently;
// a writer holds the lock across the map update and the snapshot write so
// the persisted state always matches exactly one mutation.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]FileRecord
	snapshot SnapshotStore
}

func New(snapshot SnapshotStore) *Registry {
	return &Registry{
		records:  map[string]FileRecord{},
		snapshot: snapshot,
	}
}

func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[name]
	return ok
}

func (r *Registry) IsCold(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return ok && rec.Tier == TierCold
}

func (r *Registry) Get(name string) (FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return rec, ok
}

// ColdPhysicalName returns the cold storage name of a cold record.
func (r *Registry) ColdPhysicalName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok || rec.Tier != TierCold {
		return "", false
	}
	return rec.StorageName, true
}

// ListHotNames returns the hot logical names in lexical order.
func (r *Registry) ListHotNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.records))
	for name, rec := range r.records {
		if rec.Tier == TierHot {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListAllNames returns every logical name in lexical order.
func (r *Registry) ListAllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Upsert inserts or replaces the record for logicalName and persists the
// snapshot. If persisting fails the previous in-memory state is restored and
// the error wraps common.ErrRegistryPersist.
func (r *Registry) Upsert(ctx context.Context, logicalName, storageName string) error {
	rec, err := NewRecord(logicalName, storageName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.records[logicalName]
	r.insertLocked(rec)

	if err := r.snapshot.Save(ctx, r.snapshotLocked()); err != nil {
		if existed {
			r.records[logicalName] = prev
		} else {
			delete(r.records, logicalName)
		}
		return fmt.Errorf("%w: %w", common.ErrRegistryPersist, err)
	}
	return nil
}

// LoadOnStartup replaces the in-memory state with the persisted snapshot.
// Records go through insertLocked, the same path Upsert uses.
func (r *Registry) LoadOnStartup(ctx context.Context) error {
	records, err := r.snapshot.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	loaded := make(map[string]FileRecord, len(records))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = loaded
	for _, rec := range records {
		checked, err := NewRecord(rec.LogicalName, rec.StorageName)
		if err != nil {
			r.records = map[string]FileRecord{}
			return fmt.Errorf("load snapshot: %w", err)
		}
		r.insertLocked(checked)
	}
	return nil
}

func (r *Registry) insertLocked(rec FileRecord) {
	r.records[rec.LogicalName] = rec
}

// snapshotLocked returns all records ordered by logical name.
func (r *Registry) snapshotLocked() []FileRecord {
	out := make([]FileRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalName < out[j].LogicalName })
	return out
}
