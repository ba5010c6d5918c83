package journal_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/journal"
	"codeberg.org/mutker/netfault/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.New(io.Discard, logger.ErrorLevel, true)
}

func openJournal(t *testing.T, cfg journal.Config) journal.Journal {
	t.Helper()
	j, err := journal.NewService(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func enabledConfig(t *testing.T) journal.Config {
	t.Helper()
	return journal.Config{
		DBPath:  filepath.Join(t.TempDir(), "journal.db"),
		Enabled: true,
	}
}

func TestDisabledJournal(t *testing.T) {
	j := openJournal(t, journal.DefaultConfig())

	errFactory := errors.New()
	require.NoError(t, j.Record(context.Background(), errFactory.New(errors.ErrIoError), "probe"))

	counts, err := j.CountByCode(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)

	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordAndQuery(t *testing.T) {
	j := openJournal(t, enabledConfig(t))
	ctx := context.Background()
	errFactory := errors.New()

	require.NoError(t, j.Record(ctx, errFactory.WrapWithCode(errors.ErrIoError, fmt.Errorf("disk full")), "flush"))
	require.NoError(t, j.Record(ctx, errFactory.WrapWithCode(errors.ErrIoError, fmt.Errorf("connection reset")), "probe"))
	require.NoError(t, j.Record(ctx, errFactory.WithMessage(errors.ErrTimeout, "probe timed out"), "probe"))

	counts, err := j.CountByCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[errors.ErrorCode]int{
		errors.ErrIoError: 2,
		errors.ErrTimeout: 1,
	}, counts)

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, errors.ErrTimeout, entries[0].Code)
	assert.Equal(t, "probe timed out", entries[0].Message)
	assert.Equal(t, "ErrorCode=Timeout, ErrorMsg=probe timed out, StackTrace=", entries[0].Detail)
	assert.Equal(t, "probe", entries[0].Operation)
	assert.Len(t, entries[0].ID, 26)
	assert.WithinDuration(t, time.Now(), entries[0].Timestamp, time.Minute)

	assert.Equal(t, errors.ErrIoError, entries[1].Code)
	assert.Equal(t, "connection reset", entries[1].Message)
	assert.Greater(t, entries[0].ID, entries[1].ID)
}

func TestBatchedEntriesSurviveReopen(t *testing.T) {
	cfg := enabledConfig(t)
	cfg.BatchSize = 10
	cfg.BatchTimeout = time.Hour

	j, err := journal.NewService(cfg, testLogger())
	require.NoError(t, err)

	errFactory := errors.New()
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, errFactory.New(errors.ErrParameterError), "classify"))
	require.NoError(t, j.Record(ctx, errFactory.New(errors.ErrParameterError), "classify"))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	reopened := openJournal(t, cfg)
	counts, err := reopened.CountByCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[errors.ErrParameterError])
}

func TestRecordSanitizesOperation(t *testing.T) {
	j := openJournal(t, enabledConfig(t))
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, errors.New().New(errors.ErrUnknownError), "probe\nforged"))

	entries, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "probeforged", entries[0].Operation)
}

func TestRecordRejections(t *testing.T) {
	j := openJournal(t, enabledConfig(t))

	err := j.Record(context.Background(), nil, "probe")
	require.Error(t, err)
	assert.Equal(t, errors.ErrParameterError, errors.GetCode(err))

	_, err = j.Recent(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrParameterError, errors.GetCode(err))
}

func TestRecordAfterContextEnds(t *testing.T) {
	expired := func() (context.Context, context.CancelFunc) {
		return context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	}
	cancelled := func() (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx, cancel
	}
	cancelledWithCause := func() (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancelCause(context.Background())
		cancel(fmt.Errorf("session expired"))
		return ctx, func() {}
	}

	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want errors.ErrorCode
	}{
		{name: "cancelled by caller", ctx: cancelled, want: errors.ErrUnknownError},
		{name: "deadline exceeded", ctx: expired, want: errors.ErrTimeout},
		{name: "cancelled with own cause", ctx: cancelledWithCause, want: errors.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := openJournal(t, enabledConfig(t))
			ctx, cancel := tt.ctx()
			defer cancel()

			err := j.Record(ctx, errors.New().New(errors.ErrIoError), "probe")
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetCode(err))
			assert.Equal(t, errors.Classify(errors.FromContext(ctx)), errors.GetCode(err))

			counts, err := j.CountByCode(context.Background())
			require.NoError(t, err)
			assert.Empty(t, counts)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     journal.Config
		wantErr bool
	}{
		{name: "default", cfg: journal.DefaultConfig()},
		{name: "disabled without path", cfg: journal.Config{}},
		{name: "enabled without path", cfg: journal.Config{Enabled: true}, wantErr: true},
		{name: "negative batch size", cfg: journal.Config{DBPath: "x.db", BatchSize: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ErrParameterError, errors.GetCode(err))
		})
	}
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := enabledConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	j := openJournal(t, cfg)
	require.NoError(t, j.Record(context.Background(), errors.New().New(errors.ErrIoError), "probe"))

	counts, err := j.CountByCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[errors.ErrIoError])

	backups, err := os.ReadDir(filepath.Join(filepath.Dir(cfg.DBPath), "backups"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, backups[0].Name(), "journal_v99_")
}
