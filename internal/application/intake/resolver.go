package intake

import (
	"context"
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Classifier port
// ─────────────────────────────────────────────────────────────────────────────

// Classification is a classifier's verdict on a document.
type Classification struct {
	// Priority is a raw label, validated by the resolver.
	Priority string
	// DocumentDate is the date string the classifier found, if any.
	DocumentDate string
}

// Classifier analyzes document text and suggests metadata.  Implementations
// report unavailability with ErrCodeClassifierUnavailable and undecodable
// responses with ErrCodeClassifierMalformed; the resolver absorbs both.
type Classifier interface {
	Classify(ctx context.Context, filename, text string) (*Classification, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Metadata resolver
// ─────────────────────────────────────────────────────────────────────────────

// Metadata is the resolver's output: always complete, never an error.
type Metadata struct {
	Priority     file.Priority
	DocumentDate *time.Time
	// FromClassifier records whether the priority came from the classifier
	// or the fallback default.  Surfaced in logs and intake responses.
	FromClassifier bool
}

// Resolver turns document text into complete metadata.  It is total: any
// classifier failure, malformed verdict, or unparseable date degrades to a
// defined fallback instead of propagating.
type Resolver struct {
	classifier Classifier
	logger     logging.Logger
}

// NewResolver builds a resolver.  classifier may be nil, in which case every
// resolution takes the fallback path.
func NewResolver(classifier Classifier, logger logging.Logger) *Resolver {
	return &Resolver{classifier: classifier, logger: logger.Named("intake.resolver")}
}

// Resolve produces metadata for a document.  The priority comes from the
// classifier when it answers with a recognized label, and defaults to Medium
// otherwise.  The document date comes from the classifier's verdict when it
// parses, then from scanning the text, and is omitted when neither yields a
// calendar-valid date.
func (r *Resolver) Resolve(ctx context.Context, filename, text string) Metadata {
	md := Metadata{Priority: file.DefaultPriority}

	var verdict *Classification
	if r.classifier != nil {
		var err error
		verdict, err = r.classifier.Classify(ctx, filename, text)
		if err != nil {
			r.logger.Warn("classifier failed, using fallback metadata",
				logging.String("filename", filename),
				logging.String("code", errors.GetCode(err).String()),
				logging.Err(err))
			verdict = nil
		}
	}

	if verdict != nil {
		p, err := file.ParsePriority(verdict.Priority)
		if err != nil {
			r.logger.Warn("classifier returned unrecognized priority",
				logging.String("filename", filename),
				logging.String("label", verdict.Priority))
		} else {
			md.FromClassifier = true
		}
		md.Priority = p

		if verdict.DocumentDate != "" {
			if d, err := NormalizeDate(verdict.DocumentDate); err == nil {
				md.DocumentDate = &d
				return md
			}
			r.logger.Warn("classifier returned unparseable date",
				logging.String("filename", filename),
				logging.String("date", verdict.DocumentDate))
		}
	}

	if d, err := ExtractDate(text); err == nil {
		md.DocumentDate = &d
	}
	return md
}
