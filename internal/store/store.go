// Package store persists finished reports, at most one per video.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
)

// ErrNotFound is returned when no report matches
var ErrNotFound = errors.New("report not found")

const (
	DefaultPageSize = 5
	MaxPageSize     = 50
)

// Record is one stored report
type Record struct {
	ID        string
	VideoID   string
	Report    model.Report
	CreatedAt time.Time
}

// Summary is the listing view of a Record
type Summary struct {
	ID        string          `json:"id"`
	Video     model.Video     `json:"video"`
	Consensus model.Consensus `json:"consensus"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Page is one slice of the newest-first listing
type Page struct {
	Reports []Summary `json:"reports"`
	Total   int       `json:"total"`
	HasMore bool      `json:"hasMore"`
}

// Store persists reports. Save is idempotent per video: a second save for the same
// video returns the existing id with created=false and leaves the stored report untouched.
type Store interface {
	Save(ctx context.Context, report model.Report) (id string, created bool, err error)
	LatestByVideoID(ctx context.Context, videoID string) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit, offset int) (Page, error)
	Delete(ctx context.Context, id string) error
}

// ClampPage normalizes listing parameters: limit to [1, MaxPageSize] (0 means default), offset to >= 0
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 1:
		limit = 1
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return limit, max(offset, 0)
}

// WithID returns the record's report with ReportID set
func (r *Record) WithID() model.Report {
	report := r.Report
	report.ReportID = r.ID
	return report
}

func (r *Record) summary() Summary {
	return Summary{ID: r.ID, Video: r.Report.Video, Consensus: r.Report.Consensus, CreatedAt: r.CreatedAt}
}
