package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimlens/internal/model"
)

// MemoryStore keeps reports in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Record
	byVideo map[string]string
	now     func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Record),
		byVideo: make(map[string]string),
		now:     time.Now,
	}
}

// Save stores report unless its video already has one
func (s *MemoryStore) Save(ctx context.Context, report model.Report) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byVideo[report.Video.ID]; ok {
		return id, false, nil
	}

	report.ReportID = ""
	rec := &Record{
		ID:        uuid.NewString(),
		VideoID:   report.Video.ID,
		Report:    report,
		CreatedAt: s.now().UTC(),
	}
	s.byID[rec.ID] = rec
	s.byVideo[rec.VideoID] = rec.ID
	return rec.ID, true, nil
}

// LatestByVideoID returns the stored report for videoID
func (s *MemoryStore) LatestByVideoID(ctx context.Context, videoID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byVideo[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.copyOf(id)
}

// Get returns the report with id
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(id)
}

// List returns reports newest first
func (s *MemoryStore) List(ctx context.Context, limit, offset int) (Page, error) {
	limit, offset = ClampPage(limit, offset)

	s.mu.RLock()
	all := make([]*Record, 0, len(s.byID))
	for _, rec := range s.byID {
		all = append(all, rec)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	page := Page{Reports: []Summary{}, Total: len(all)}
	if offset < len(all) {
		end := min(offset+limit, len(all))
		for _, rec := range all[offset:end] {
			page.Reports = append(page.Reports, rec.summary())
		}
	}
	page.HasMore = offset+len(page.Reports) < page.Total
	return page, nil
}

// Delete removes the report with id
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byVideo, rec.VideoID)
	return nil
}

func (s *MemoryStore) copyOf(id string) (*Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *rec
	return &c, nil
}
