// Package memstore is an in-memory store used for dry runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/store"
)

var _ store.Store = (*Store)(nil)

func init() {
	store.Register(store.DriverMemory, func(_ context.Context, _ config.Store) (store.Store, error) {
		return New(), nil
	})
}

// Store keeps versions and records in maps guarded by a mutex.
type Store struct {
	mu       sync.Mutex
	versions map[string]*model.FileVersion
	order    []string
	records  map[string][]model.Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		versions: make(map[string]*model.FileVersion),
		records:  make(map[string][]model.Record),
	}
}

// FindCompletedVersion implements store.Gateway.
func (s *Store) FindCompletedVersion(_ context.Context, owner, fileName, hash string) (*model.FileVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		v := s.versions[s.order[i]]
		if v.Complete && v.Owner == owner && v.FileName == fileName && v.Hash == hash {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

// CreateVersion implements store.Gateway.
func (s *Store) CreateVersion(_ context.Context, v *model.FileVersion) (*model.FileVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *v
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := s.versions[created.ID]; exists {
		return nil, fmt.Errorf("file version %s already exists", created.ID)
	}

	stored := created
	s.versions[created.ID] = &stored
	s.order = append(s.order, created.ID)
	return &created, nil
}

// MarkComplete implements store.Gateway.
func (s *Store) MarkComplete(_ context.Context, v *model.FileVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.versions[v.ID]
	if !ok {
		return fmt.Errorf("version %s: %w", v.ID, store.ErrVersionNotFound)
	}

	now := time.Now().UTC()
	stored.Complete = true
	stored.CompletedAt = &now
	v.Complete = true
	v.CompletedAt = &now
	return nil
}

// AppendLine implements store.Gateway.
func (s *Store) AppendLine(_ context.Context, rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(rec)
}

// AppendLines implements store.BatchAppender.
func (s *Store) AppendLines(_ context.Context, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		if err := s.appendLocked(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) appendLocked(rec model.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	if _, ok := s.versions[rec.VersionID()]; !ok {
		return fmt.Errorf("record for version %s: %w", rec.VersionID(), store.ErrVersionNotFound)
	}
	s.records[rec.VersionID()] = append(s.records[rec.VersionID()], rec)
	return nil
}

// Records returns the records stored for a version, in append order.
func (s *Store) Records(versionID string) []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Record, len(s.records[versionID]))
	copy(out, s.records[versionID])
	return out
}

// Versions returns copies of all versions in creation order.
func (s *Store) Versions() []*model.FileVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.FileVersion, 0, len(s.order))
	for _, id := range s.order {
		c := *s.versions[id]
		out = append(out, &c)
	}
	return out
}

// ListVersions implements store.Admin.
func (s *Store) ListVersions(_ context.Context, owner string) ([]*model.FileVersion, error) {
	var out []*model.FileVersion
	for _, v := range s.Versions() {
		if owner == "" || v.Owner == owner {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParsedAt.Before(out[j].ParsedAt)
	})
	return out, nil
}

// CountRecords implements store.Admin.
func (s *Store) CountRecords(_ context.Context, versionID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var classified, unparsed int
	for _, rec := range s.records[versionID] {
		switch rec.(type) {
		case *model.ClassifiedLine:
			classified++
		case *model.UnparsedLine:
			unparsed++
		}
	}
	return classified, unparsed, nil
}

// Reset implements store.Admin.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions = make(map[string]*model.FileVersion)
	s.records = make(map[string][]model.Record)
	s.order = nil
	return nil
}

// Ping implements store.Admin.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements store.Store.
func (s *Store) Close() error { return nil }
