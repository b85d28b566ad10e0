// Package reporting assembles the dashboard and daily report views from the
// file, section, and ledger stores.
package reporting

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/internal/domain/section"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// attentionPageSize bounds how many monitored files the dashboard inspects
// per page when building the attention list.
const attentionPageSize = 200

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

// FileAttention is one dashboard row for a file consuming its allowance.
type FileAttention struct {
	FileID         common.ID     `json:"file_id"`
	Filename       string        `json:"filename"`
	SectionID      common.ID     `json:"section_id"`
	Priority       file.Priority `json:"priority"`
	Status         file.Status   `json:"status"`
	ElapsedPercent int           `json:"elapsed_percent"`
	TimeLeft       string        `json:"time_left"`
}

// DashboardStats is the headline view.
type DashboardStats struct {
	Pending      int64           `json:"pending"`
	Overdue      int64           `json:"overdue"`
	Completed    int64           `json:"completed"`
	UnreadAlerts int64           `json:"unread_alerts"`
	Attention    []FileAttention `json:"attention"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// SectionStats is the per-section breakdown row.
type SectionStats struct {
	SectionID   common.ID `json:"section_id"`
	SectionName string    `json:"section_name"`
	Pending     int64     `json:"pending"`
	Overdue     int64     `json:"overdue"`
	Completed   int64     `json:"completed"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache port
// ─────────────────────────────────────────────────────────────────────────────

// Cache stores serialized views for a short TTL so dashboard refreshes do
// not hammer the database.  GetOrLoad serves cached bytes when present and
// otherwise runs loader exactly once per key across concurrent callers,
// caching the result.  Cache read errors count as misses.
type Cache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service builds reporting views.
type Service struct {
	files    file.Repository
	records  ledger.Repository
	sections section.Repository
	cache    Cache
	cacheTTL time.Duration
	logger   logging.Logger
}

// Option tunes the reporting service.
type Option func(*Service)

// WithCache installs a view cache with the given TTL.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewService builds the reporting service.
func NewService(files file.Repository, records ledger.Repository, sections section.Repository, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		files:    files,
		records:  records,
		sections: sections,
		logger:   logger.Named("reporting"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard assembles the headline stats view at instant now.  The attention
// list contains every monitored file past half its allowance, worst first.
// With a cache installed, concurrent refreshes of a cold view share a single
// rebuild.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*DashboardStats, error) {
	if s.cache == nil {
		return s.buildDashboard(ctx, now)
	}
	data, err := s.cache.GetOrLoad(ctx, "dashboard", s.cacheTTL, func(ctx context.Context) ([]byte, error) {
		stats, err := s.buildDashboard(ctx, now)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)
	})
	if err != nil {
		return nil, err
	}
	var stats DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		s.logger.Warn("cached dashboard view is corrupt, rebuilding", logging.Err(err))
		return s.buildDashboard(ctx, now)
	}
	return &stats, nil
}

func (s *Service) buildDashboard(ctx context.Context, now time.Time) (*DashboardStats, error) {
	counts, err := s.files.CountByStatus(ctx, common.ID(""))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting files by status")
	}
	unread, err := s.records.CountUnreadAlerts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting unread alerts")
	}
	attention, err := s.attentionList(ctx, now)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Pending:      counts[file.StatusPending],
		Overdue:      counts[file.StatusOverdue],
		Completed:    counts[file.StatusCompleted],
		UnreadAlerts: unread,
		Attention:    attention,
		GeneratedAt:  now,
	}, nil
}

// attentionList walks monitored files and keeps those past the attention
// threshold, ordered most-consumed first.
func (s *Service) attentionList(ctx context.Context, now time.Time) ([]FileAttention, error) {
	attention := make([]FileAttention, 0)
	for _, status := range []file.Status{file.StatusOverdue, file.StatusPending} {
		page := common.Pagination{Page: 1, PageSize: attentionPageSize}
		for {
			batch, _, err := s.files.List(ctx, file.ListFilter{Status: status}, page)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing monitored files")
			}
			for _, f := range batch {
				p, ok := sla.Project(f, now)
				if !ok || !p.NeedsAttention {
					continue
				}
				attention = append(attention, FileAttention{
					FileID:         f.ID,
					Filename:       f.Filename,
					SectionID:      f.SectionID,
					Priority:       f.Priority,
					Status:         f.Status,
					ElapsedPercent: p.ElapsedPercent,
					TimeLeft:       p.TimeLeft,
				})
			}
			if len(batch) < attentionPageSize {
				break
			}
			page.Page++
		}
	}
	sort.SliceStable(attention, func(i, j int) bool {
		return attentionRank(attention[i]) > attentionRank(attention[j])
	})
	return attention, nil
}

// attentionRank orders overdue files above pending ones, then by consumption.
func attentionRank(r FileAttention) int {
	if r.Status == file.StatusOverdue {
		return 100 + r.ElapsedPercent
	}
	return r.ElapsedPercent
}

// Sections assembles the per-section breakdown.
func (s *Service) Sections(ctx context.Context) ([]SectionStats, error) {
	secs, err := s.sections.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing sections")
	}
	out := make([]SectionStats, 0, len(secs))
	for _, sec := range secs {
		counts, err := s.files.CountByStatus(ctx, sec.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting section files")
		}
		out = append(out, SectionStats{
			SectionID:   sec.ID,
			SectionName: sec.Name,
			Pending:     counts[file.StatusPending],
			Overdue:     counts[file.StatusOverdue],
			Completed:   counts[file.StatusCompleted],
		})
	}
	return out, nil
}
