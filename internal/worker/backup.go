// Package worker runs the backup and export loop: periodic SQLite
// snapshots plus incremental delivery of committed ledger rows to an
// export target. It never writes to ledger tables.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"kasbook/internal/amqp"
	"kasbook/internal/core"
	"kasbook/internal/export"
	"kasbook/internal/log"
	"kasbook/internal/storage"
)

// exportCursorKey is the settings row holding the id of the last
// exported transaction. Rows up to and including it were delivered.
const exportCursorKey = "export_last_id"

type BackupWorker struct {
	repo     *storage.Repository
	exporter export.RowAppender // nil disables export
	log      *log.Logger

	backupDir string
	interval  time.Duration // used when the interval setting is absent or malformed
	batchSize int
}

func NewBackupWorker(repo *storage.Repository, exporter export.RowAppender, logger *log.Logger, backupDir string, interval time.Duration, batchSize int) *BackupWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &BackupWorker{
		repo:      repo,
		exporter:  exporter,
		log:       logger.WithComponent(log.ComponentWorker),
		backupDir: backupDir,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run fires RunOnce at the configured interval until the context ends.
// The interval setting is re-read before each wait, so changing it takes
// effect on the next firing without a restart.
func (w *BackupWorker) Run(ctx context.Context) error {
	w.log.Info("Backup worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.currentInterval(ctx)):
		}
		if err := w.RunOnce(ctx); err != nil {
			w.log.ErrorContext(ctx, "Backup run failed", log.FieldError, err)
		}
	}
}

// RunOnce performs one firing: a snapshot when backups are enabled, then
// an incremental export when a target is configured.
func (w *BackupWorker) RunOnce(ctx context.Context) error {
	enabled, err := w.settingBool(ctx, core.SettingBackupEnabled)
	if err != nil {
		return err
	}
	if enabled {
		if err := w.snapshot(ctx); err != nil {
			return err
		}
	}
	return w.exportPending(ctx)
}

// HandleLedgerEvent reacts to bus messages by exporting everything past
// the cursor. Updates and deletes only log; the sheet is append-only.
func (w *BackupWorker) HandleLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	switch ev.Type {
	case amqp.EventCommitted:
		return w.exportPending(ctx)
	case amqp.EventUpdated, amqp.EventDeleted:
		w.log.InfoContext(ctx, "Ledger event ignored by export",
			"type", ev.Type, log.FieldTxID, ev.ID)
		return nil
	default:
		return fmt.Errorf("unknown ledger event type %q", ev.Type)
	}
}

func (w *BackupWorker) snapshot(ctx context.Context) error {
	dir := w.backupDir
	if target, err := w.repo.GetSetting(ctx, core.SettingBackupTarget); err == nil && target != "" {
		dir = target
	}
	dest := filepath.Join(dir, "kasbook-"+time.Now().Format("20060102-150405")+".db")
	if err := w.repo.Snapshot(ctx, dest); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	w.log.InfoContext(ctx, "Snapshot written", "path", dest)
	return nil
}

func (w *BackupWorker) exportPending(ctx context.Context) error {
	if w.exporter == nil {
		return nil
	}

	cursor, err := w.exportCursor(ctx)
	if err != nil {
		return err
	}

	for {
		rows, err := w.repo.ListTransactionsAfterID(ctx, cursor, w.batchSize)
		if err != nil {
			return fmt.Errorf("list pending transactions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := w.exporter.AppendTransactions(ctx, rows); err != nil {
			return fmt.Errorf("append transactions: %w", err)
		}
		cursor = rows[len(rows)-1].ID
		if err := w.repo.SetSetting(ctx, exportCursorKey, strconv.FormatInt(cursor, 10)); err != nil {
			return fmt.Errorf("store export cursor: %w", err)
		}
		w.log.InfoContext(ctx, "Exported transactions",
			"count", len(rows), "cursor", cursor)
	}
}

func (w *BackupWorker) exportCursor(ctx context.Context) (int64, error) {
	v, err := w.repo.GetSetting(ctx, exportCursorKey)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed export cursor %q: %w", v, err)
	}
	return id, nil
}

func (w *BackupWorker) currentInterval(ctx context.Context) time.Duration {
	v, err := w.repo.GetSetting(ctx, core.SettingBackupInterval)
	if err != nil {
		return w.interval
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return w.interval
	}
	return d
}

func (w *BackupWorker) settingBool(ctx context.Context, key string) (bool, error) {
	v, err := w.repo.GetSetting(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}
