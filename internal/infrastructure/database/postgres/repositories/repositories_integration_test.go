//go:build integration

package repositories_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/opsdesk/filetrack/internal/application/sla"
	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/internal/domain/section"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/postgres"
	"github.com/opsdesk/filetrack/internal/infrastructure/database/postgres/repositories"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

func startDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("filetrack_test"),
		tcpostgres.WithUsername("filetrack"),
		tcpostgres.WithPassword("filetrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(db, logging.NewNopLogger()))
	return db
}

func seedSection(t *testing.T, repo *repositories.SectionRepository) *section.Section {
	t.Helper()
	sec, err := section.New("Accounts", "accounting paperwork", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sec))
	return sec
}

func seedFile(t *testing.T, repo *repositories.FileRepository, sec common.ID, p file.Priority, upload time.Time) *file.File {
	t.Helper()
	f, err := file.New("doc.pdf", "documents/doc.pdf", sec, p, upload, sla.DeadlineFor(p, upload), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), f))
	return f
}

func TestRepositories(t *testing.T) {
	db := startDatabase(t)
	ctx := context.Background()

	sections := repositories.NewSectionRepository(db)
	files := repositories.NewFileRepository(db)
	records := repositories.NewLedgerRepository(db)

	sec := seedSection(t, sections)

	t.Run("section round trip", func(t *testing.T) {
		got, err := sections.GetByID(ctx, sec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Accounts", got.Name)

		dup, err := section.New("Accounts", "", time.Now().UTC())
		require.NoError(t, err)
		err = sections.Create(ctx, dup)
		assert.True(t, errors.IsConflict(err))

		_, err = sections.GetByID(ctx, common.NewID())
		assert.True(t, errors.IsCode(err, errors.ErrCodeSectionNotFound))
	})

	t.Run("file round trip", func(t *testing.T) {
		upload := time.Now().UTC().Truncate(time.Microsecond)
		f := seedFile(t, files, sec.ID, file.PriorityHigh, upload)

		got, err := files.GetByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Filename, got.Filename)
		assert.Equal(t, file.StatusPending, got.Status)
		require.NotNil(t, got.SLADeadline)
		assert.True(t, got.SLADeadline.Equal(*f.SLADeadline))

		listed, total, err := files.List(ctx, file.ListFilter{SectionID: sec.ID}, common.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(1))
		assert.NotEmpty(t, listed)
	})

	t.Run("sweep update gate", func(t *testing.T) {
		upload := time.Now().UTC().Add(-48 * time.Hour)
		f := seedFile(t, files, sec.ID, file.PriorityCritical, upload)
		now := time.Now().UTC().Truncate(time.Microsecond)

		applied, err := files.ApplySweepUpdate(ctx, file.SweepUpdate{
			FileID:          f.ID,
			Status:          file.StatusOverdue,
			EscalationLevel: 1,
			UpdatedAt:       now,
		})
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := files.GetByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, file.StatusOverdue, got.Status)
		assert.Equal(t, 1, got.EscalationLevel)

		// A second write finds the row no longer Pending.
		applied, err = files.ApplySweepUpdate(ctx, file.SweepUpdate{
			FileID:          f.ID,
			Status:          file.StatusOverdue,
			EscalationLevel: 2,
			UpdatedAt:       now,
		})
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("completion clears deadline", func(t *testing.T) {
		f := seedFile(t, files, sec.ID, file.PriorityMedium, time.Now().UTC())
		now := time.Now().UTC().Truncate(time.Microsecond)

		done, err := files.MarkCompleted(ctx, f.ID, now)
		require.NoError(t, err)
		assert.Equal(t, file.StatusCompleted, done.Status)
		assert.Nil(t, done.SLADeadline)
		require.NotNil(t, done.CompletionTime)

		_, err = files.MarkCompleted(ctx, f.ID, now)
		assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidTransition))

		_, err = files.MarkCompleted(ctx, common.NewID(), now)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("pending snapshot pages by id", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			seedFile(t, files, sec.ID, file.PriorityLow, time.Now().UTC())
		}
		var afterID common.ID
		seen := map[common.ID]bool{}
		for {
			batch, err := files.ListPending(ctx, afterID, 2)
			require.NoError(t, err)
			if len(batch) == 0 {
				break
			}
			for _, f := range batch {
				assert.False(t, seen[f.ID], "file returned twice")
				seen[f.ID] = true
				assert.Equal(t, file.StatusPending, f.Status)
			}
			afterID = batch[len(batch)-1].ID
			if len(batch) < 2 {
				break
			}
		}
		assert.GreaterOrEqual(t, len(seen), 5)
	})

	t.Run("ledger round trip", func(t *testing.T) {
		f := seedFile(t, files, sec.ID, file.PriorityCritical, time.Now().UTC())
		now := time.Now().UTC().Truncate(time.Microsecond)

		alert, err := ledger.NewAlert(f.ID, ledger.AlertOverdue, "File doc.pdf is OVERDUE! Deadline was earlier", now)
		require.NoError(t, err)
		require.NoError(t, records.AppendAlert(ctx, alert))

		esc, err := ledger.NewEscalation(f.ID, 1, now)
		require.NoError(t, err)
		require.NoError(t, records.AppendEscalation(ctx, esc))

		alerts, total, err := records.ListAlerts(ctx, ledger.AlertFilter{FileID: f.ID}, common.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, alerts, 1)
		assert.False(t, alerts[0].IsRead)

		unread, err := records.CountUnreadAlerts(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, unread, int64(1))

		require.NoError(t, records.MarkAlertRead(ctx, alert.ID))
		alerts, _, err = records.ListAlerts(ctx, ledger.AlertFilter{FileID: f.ID}, common.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.True(t, alerts[0].IsRead)

		err = records.MarkAlertRead(ctx, common.NewID())
		assert.True(t, errors.IsCode(err, errors.ErrCodeAlertNotFound))

		escs, err := records.ListEscalations(ctx, f.ID)
		require.NoError(t, err)
		require.Len(t, escs, 1)
		assert.Equal(t, 1, escs[0].Level)
	})
}
