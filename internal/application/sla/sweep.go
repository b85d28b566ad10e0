package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// reminderWindow is how close to the deadline a file must be before the
// one-time reminder fires.
const reminderWindow = 24 * time.Hour

// ─────────────────────────────────────────────────────────────────────────────
// Pure evaluation
// ─────────────────────────────────────────────────────────────────────────────

// Decision is the sweep's verdict for one pending file.  Exactly one of the
// boolean fields is set, or none when the file needs no action this pass.
type Decision struct {
	File *file.File

	// Overdue: the file crossed its deadline and must transition.
	Overdue bool
	// Remind: less than reminderWindow remains and the latch is unset.
	Remind bool
	// Malformed: the record is internally inconsistent and was skipped.
	Malformed bool

	// Alert and Escalation are the ledger records to append when the
	// state write succeeds.  Alert is set for both Overdue and Remind;
	// Escalation only for Overdue.
	Alert      *ledger.Alert
	Escalation *ledger.Escalation
}

// Evaluate decides what the sweep should do with one pending file at instant
// now.  It mutates f in memory (status, reminder latch, escalation level) but
// performs no I/O; persisting the mutation is the caller's job.
//
// Overdue requires now strictly after the deadline: a file inspected at the
// exact deadline instant is still on time.  Files already past their reminder
// latch, or overdue files from earlier passes, produce an empty decision,
// which is what makes repeated sweeps over unchanged data idempotent.
func Evaluate(f *file.File, now time.Time) (Decision, error) {
	d := Decision{File: f}

	if f.Status != file.StatusPending {
		return d, nil
	}
	if f.SLADeadline == nil {
		d.Malformed = true
		return d, errors.Newf(errors.ErrCodeMalformedDeadlineState,
			"pending file %s has no sla deadline", f.ID)
	}
	deadline := f.SLADeadline.UTC()

	if now.After(deadline) {
		level, err := f.MarkOverdue(now)
		if err != nil {
			return d, err
		}
		d.Overdue = true
		d.Alert, err = ledger.NewAlert(f.ID, ledger.AlertOverdue,
			fmt.Sprintf("File %s is OVERDUE! Deadline was %s", f.Filename, deadline.Format("2006-01-02 15:04 MST")), now)
		if err != nil {
			return d, err
		}
		d.Escalation, err = ledger.NewEscalation(f.ID, level, now)
		return d, err
	}

	if deadline.Sub(now) < reminderWindow && f.LatchReminder(now) {
		d.Remind = true
		var err error
		d.Alert, err = ledger.NewAlert(f.ID, ledger.AlertReminder,
			fmt.Sprintf("File %s is nearing its deadline (%s)", f.Filename, deadline.Format("2006-01-02 15:04 MST")), now)
		return d, err
	}

	return d, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sweep service
// ─────────────────────────────────────────────────────────────────────────────

// Result summarizes one sweep pass.
type Result struct {
	Scanned   int       `json:"scanned"`
	Overdue   int       `json:"overdue"`
	Reminded  int       `json:"reminded"`
	Malformed int       `json:"malformed"`
	Skipped   int       `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Locker serializes sweep passes across instances.  Acquire returns a release
// function and true on success, false when another instance holds the lock.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Publisher fans sweep outcomes out to the event stream.  Publish failures
// are logged, never fatal: the ledger row is the durable record.
type Publisher interface {
	PublishAlertRaised(ctx context.Context, a *ledger.Alert) error
	PublishEscalationRaised(ctx context.Context, e *ledger.Escalation) error
}

// Metrics receives sweep counters.
type Metrics interface {
	SweepCompleted(r Result)
}

// SweepService runs the periodic overdue scan.
type SweepService struct {
	files     file.Repository
	records   ledger.Repository
	locker    Locker
	publisher Publisher
	metrics   Metrics
	logger    logging.Logger

	lockTTL   time.Duration
	batchSize int
}

// SweepOption tunes the sweep service.
type SweepOption func(*SweepService)

// WithLocker installs a cross-instance lock.
func WithLocker(l Locker) SweepOption {
	return func(s *SweepService) { s.locker = l }
}

// WithPublisher installs an event publisher.
func WithPublisher(p Publisher) SweepOption {
	return func(s *SweepService) { s.publisher = p }
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) SweepOption {
	return func(s *SweepService) { s.metrics = m }
}

// WithLockTTL overrides the default 5 minute lock TTL.
func WithLockTTL(ttl time.Duration) SweepOption {
	return func(s *SweepService) { s.lockTTL = ttl }
}

// WithBatchSize overrides the default 500-row snapshot batch.
func WithBatchSize(n int) SweepOption {
	return func(s *SweepService) { s.batchSize = n }
}

// NewSweepService builds the sweep service.
func NewSweepService(files file.Repository, records ledger.Repository, logger logging.Logger, opts ...SweepOption) *SweepService {
	s := &SweepService{
		files:     files,
		records:   records,
		logger:    logger.Named("sla.sweep"),
		lockTTL:   5 * time.Minute,
		batchSize: 500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sweep pass at instant now.
//
// The pass reads a snapshot of pending files in batches, evaluates each, and
// writes back through the repository's pending-gated update.  A file
// completed between snapshot and write is counted as skipped; its alert and
// escalation records are not written, so a finished file never alarms.
// ErrCodeSweepAlreadyRunning when another instance holds the sweep lock.
func (s *SweepService) Run(ctx context.Context, now time.Time) (Result, error) {
	res := Result{StartedAt: now}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, "sla-sweep", s.lockTTL)
		if err != nil {
			return res, errors.Wrap(err, errors.ErrCodeCacheError, "acquiring sweep lock")
		}
		if !ok {
			return res, errors.New(errors.ErrCodeSweepAlreadyRunning, "sweep lock held by another instance")
		}
		defer release()
	}

	start := time.Now()
	var afterID common.ID
	for {
		batch, err := s.files.ListPending(ctx, afterID, s.batchSize)
		if err != nil {
			return res, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing pending files")
		}
		if len(batch) == 0 {
			break
		}
		for _, f := range batch {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			s.sweepOne(ctx, f, now, &res)
		}
		afterID = batch[len(batch)-1].ID
		if len(batch) < s.batchSize {
			break
		}
	}

	res.Elapsed = time.Since(start)
	s.logger.Info("sweep pass finished",
		logging.Int("scanned", res.Scanned),
		logging.Int("overdue", res.Overdue),
		logging.Int("reminded", res.Reminded),
		logging.Int("malformed", res.Malformed),
		logging.Int("skipped", res.Skipped),
		logging.Duration("elapsed", res.Elapsed))
	if s.metrics != nil {
		s.metrics.SweepCompleted(res)
	}
	return res, nil
}

func (s *SweepService) sweepOne(ctx context.Context, f *file.File, now time.Time, res *Result) {
	res.Scanned++

	d, err := Evaluate(f, now)
	if err != nil {
		if d.Malformed {
			res.Malformed++
			s.logger.Warn("skipping malformed file record",
				logging.String("file_id", f.ID.String()),
				logging.Err(err))
			return
		}
		s.logger.Error("sweep evaluation failed",
			logging.String("file_id", f.ID.String()),
			logging.Err(err))
		return
	}
	if !d.Overdue && !d.Remind {
		return
	}

	applied, err := s.files.ApplySweepUpdate(ctx, file.SweepUpdate{
		FileID:          f.ID,
		Status:          f.Status,
		ReminderSent:    f.ReminderSent,
		EscalationLevel: f.EscalationLevel,
		UpdatedAt:       now,
	})
	if err != nil {
		s.logger.Error("persisting sweep decision failed",
			logging.String("file_id", f.ID.String()),
			logging.Err(err))
		return
	}
	if !applied {
		// Completed while we were iterating the snapshot.
		res.Skipped++
		return
	}

	if d.Overdue {
		res.Overdue++
	} else {
		res.Reminded++
	}
	s.appendRecords(ctx, d)
}

func (s *SweepService) appendRecords(ctx context.Context, d Decision) {
	if d.Alert != nil {
		if err := s.records.AppendAlert(ctx, d.Alert); err != nil {
			s.logger.Error("appending alert failed",
				logging.String("file_id", d.File.ID.String()),
				logging.Err(err))
		} else if s.publisher != nil {
			if err := s.publisher.PublishAlertRaised(ctx, d.Alert); err != nil {
				s.logger.Warn("publishing alert event failed",
					logging.String("alert_id", d.Alert.ID.String()),
					logging.Err(err))
			}
		}
	}
	if d.Escalation != nil {
		if err := s.records.AppendEscalation(ctx, d.Escalation); err != nil {
			s.logger.Error("appending escalation failed",
				logging.String("file_id", d.File.ID.String()),
				logging.Err(err))
		} else if s.publisher != nil {
			if err := s.publisher.PublishEscalationRaised(ctx, d.Escalation); err != nil {
				s.logger.Warn("publishing escalation event failed",
					logging.String("escalation_id", d.Escalation.ID.String()),
					logging.Err(err))
			}
		}
	}
}
