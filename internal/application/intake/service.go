// Package intake handles document arrival: storing the bytes, resolving
// metadata, deriving the SLA deadline, and registering the file as Pending.
package intake

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/section"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// allowedExtensions are the document types accepted at intake.
var allowedExtensions = map[string]struct{}{
	".txt":  {},
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".docx": {},
}

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// DocumentStore persists raw document bytes.
type DocumentStore interface {
	// Put stores the document and returns nothing; the key is chosen by
	// the caller so the file row and the object never disagree.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Remove deletes a stored document, used to clean up an orphaned
	// object when registering its file row fails.
	Remove(ctx context.Context, key string) error
}

// TextExtractor pulls searchable text out of a document for date extraction
// and classification.  Unsupported formats return ok=false, which is not an
// error: the file is still tracked, just without extracted metadata inputs.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (text string, ok bool, err error)
}

// Publisher announces accepted files on the event stream.
type Publisher interface {
	PublishFileReceived(ctx context.Context, f *file.File) error
}

// Metrics receives intake counters.
type Metrics interface {
	FileReceived(priority file.Priority, fromClassifier bool)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// UploadCommand carries one incoming document.
type UploadCommand struct {
	Filename    string
	SectionID   common.ID
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// UploadResult is what the API returns for an accepted file.
type UploadResult struct {
	File     *file.File `json:"file"`
	Metadata Metadata   `json:"metadata"`
}

// Service orchestrates document intake and the file lifecycle operations
// that follow it.
type Service struct {
	files     file.Repository
	sections  section.Repository
	store     DocumentStore
	extractor TextExtractor
	resolver  *Resolver
	publisher Publisher
	metrics   Metrics
	logger    logging.Logger
}

// Option tunes the intake service.
type Option func(*Service)

// WithPublisher installs an event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the intake service.
func NewService(files file.Repository, sections section.Repository, store DocumentStore, extractor TextExtractor, resolver *Resolver, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		files:     files,
		sections:  sections,
		store:     store,
		extractor: extractor,
		resolver:  resolver,
		logger:    logger.Named("intake"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload accepts a document at instant now: validates it, stores the bytes,
// resolves metadata, derives the deadline from the resolved priority, and
// registers the file as Pending.
//
// Metadata resolution is best-effort and never rejects an upload; validation
// failures (bad extension, unknown section, empty file) do.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand, now time.Time) (*UploadResult, error) {
	filename := sanitizeFilename(cmd.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, errors.Newf(errors.ErrCodeFileTypeNotAllowed, "file type %q is not accepted", ext)
	}
	if cmd.Size <= 0 {
		return nil, errors.InvalidParam("uploaded file is empty")
	}
	if _, err := s.sections.GetByID(ctx, cmd.SectionID); err != nil {
		return nil, err
	}

	id := common.NewID()
	key := storageKey(id, filename)
	if err := s.store.Put(ctx, key, cmd.Content, cmd.Size, cmd.ContentType); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "storing document")
	}

	text := s.extractText(ctx, filename, cmd.Content)
	md := s.resolver.Resolve(ctx, filename, text)

	deadline := sla.DeadlineFor(md.Priority, now)
	f, err := file.New(filename, key, cmd.SectionID, md.Priority, now.UTC(), deadline, md.DocumentDate)
	if err != nil {
		s.removeOrphan(ctx, key)
		return nil, err
	}
	f.ID = id

	if err := s.files.Create(ctx, f); err != nil {
		s.removeOrphan(ctx, key)
		return nil, err
	}

	s.logger.Info("file accepted",
		logging.String("file_id", f.ID.String()),
		logging.String("filename", filename),
		logging.String("priority", string(f.Priority)),
		logging.Bool("from_classifier", md.FromClassifier),
		logging.Time("deadline", deadline))

	if s.metrics != nil {
		s.metrics.FileReceived(f.Priority, md.FromClassifier)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishFileReceived(ctx, f); err != nil {
			s.logger.Warn("publishing intake event failed",
				logging.String("file_id", f.ID.String()),
				logging.Err(err))
		}
	}
	return &UploadResult{File: f, Metadata: md}, nil
}

// removeOrphan deletes a stored object whose file row never materialized.
// Best effort: a leaked object is only wasted space.
func (s *Service) removeOrphan(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		s.logger.Warn("removing orphaned document failed",
			logging.String("key", key),
			logging.Err(err))
	}
}

// extractText rewinds the upload and pulls text from it.  Every failure path
// degrades to empty text; intake never fails on extraction.
func (s *Service) extractText(ctx context.Context, filename string, r io.ReadSeeker) string {
	if s.extractor == nil || r == nil {
		return ""
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		s.logger.Warn("rewinding upload for extraction failed",
			logging.String("filename", filename),
			logging.Err(err))
		return ""
	}
	text, ok, err := s.extractor.Extract(ctx, filename, r)
	if err != nil {
		s.logger.Warn("text extraction failed",
			logging.String("filename", filename),
			logging.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	return text
}

// Complete marks a file done at instant now.
func (s *Service) Complete(ctx context.Context, id common.ID, now time.Time) (*file.File, error) {
	f, err := s.files.MarkCompleted(ctx, id, now.UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("file completed",
		logging.String("file_id", f.ID.String()),
		logging.String("filename", f.Filename))
	return f, nil
}

// Get loads a single file.
func (s *Service) Get(ctx context.Context, id common.ID) (*file.File, error) {
	return s.files.GetByID(ctx, id)
}

// List returns files matching the filter.
func (s *Service) List(ctx context.Context, filter file.ListFilter, page common.Pagination) ([]*file.File, int64, error) {
	return s.files.List(ctx, filter, page)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// sanitizeFilename strips any path components a client smuggled into the
// filename and collapses whitespace.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

func storageKey(id common.ID, filename string) string {
	return "documents/" + id.String() + "/" + filename
}
