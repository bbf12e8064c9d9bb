// Package memory keeps scraped organizations in memory, for dry runs and
// tests, with the same upsert and listing semantics as the sqlite store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Upserter is the destination of a Flush
type Upserter interface {
	Upsert(ctx context.Context, org storage.Organization) (storage.Organization, error)
}

// Store holds organizations keyed by source URL
type Store struct {
	orgs     map[string]*storage.Organization // source url -> organization
	orgsByID map[string]*storage.Organization // id -> organization
	now      func() time.Time
	mu       sync.RWMutex
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		orgs:     make(map[string]*storage.Organization),
		orgsByID: make(map[string]*storage.Organization),
		now:      time.Now,
	}
}

// Upsert inserts org or overwrites every field of the one sharing its source URL
func (s *Store) Upsert(_ context.Context, org storage.Organization) (storage.Organization, error) {
	if org.SourceURL == "" {
		return storage.Organization{}, fmt.Errorf("failed to upsert organization: source url is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	org.IsActive = true
	org.LastScrapedAt = now

	if existing, exists := s.orgs[org.SourceURL]; exists {
		org.ID = existing.ID
		org.CreatedAt = existing.CreatedAt
	} else {
		org.ID = ulid.Make().String()
		org.CreatedAt = now
	}

	stored := copyOf(&org)
	s.orgs[org.SourceURL] = &stored
	s.orgsByID[org.ID] = &stored

	return copyOf(&stored), nil
}

// Get retrieves an organization by id
func (s *Store) Get(_ context.Context, id string) (storage.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if org, exists := s.orgsByID[id]; exists {
		return copyOf(org), nil
	}
	return storage.Organization{}, storage.ErrNotFound
}

// GetBySourceURL retrieves an organization by its canonical directory URL
func (s *Store) GetBySourceURL(_ context.Context, sourceURL string) (storage.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if org, exists := s.orgs[sourceURL]; exists {
		return copyOf(org), nil
	}
	return storage.Organization{}, storage.ErrNotFound
}

// List returns organizations matching filter ordered by name
func (s *Store) List(_ context.Context, filter storage.ListFilter) ([]storage.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgs := make([]storage.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		if filter.Category != "" && !slices.Contains(org.Categories, filter.Category) {
			continue
		}
		if filter.ActiveOnly && !org.IsActive {
			continue
		}
		orgs = append(orgs, copyOf(org))
	}

	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].Name != orgs[j].Name {
			return orgs[i].Name < orgs[j].Name
		}
		return orgs[i].SourceURL < orgs[j].SourceURL
	})

	if filter.Limit > 0 && len(orgs) > filter.Limit {
		orgs = orgs[:filter.Limit]
	}
	return orgs, nil
}

// Count returns the number of stored organizations
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), nil
}

// Flush writes every organization to dst. All organizations are attempted;
// the first error is returned.
func (s *Store) Flush(ctx context.Context, dst Upserter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startTime := time.Now()
	logrus.Info("Starting flush to database...")

	written := 0
	var firstErr error

	for _, org := range s.orgs {
		if _, err := dst.Upsert(ctx, copyOf(org)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush organization %s: %v", org.SourceURL, err)
			continue
		}
		written++
	}

	logrus.Infof("Flush complete: %d/%d organizations written in %v", written, len(s.orgs), time.Since(startTime))
	return firstErr
}

// copyOf returns a copy that shares no slices or pointers with the stored record
func copyOf(org *storage.Organization) storage.Organization {
	c := *org
	c.Categories = slices.Clone(org.Categories)
	if org.Location != nil {
		loc := *org.Location
		c.Location = &loc
	}
	return c
}
