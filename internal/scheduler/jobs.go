package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/modules/history"
	"github.com/invexis/invexis/internal/modules/watchlist"
)

// RefreshPricesJob refreshes the daily price cache for every cached and
// watched symbol.
type RefreshPricesJob struct {
	history   *history.Service
	watchlist *watchlist.Repository
	log       zerolog.Logger
}

// NewRefreshPricesJob creates the nightly price refresh job
func NewRefreshPricesJob(historyService *history.Service, watchlistRepo *watchlist.Repository, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		history:   historyService,
		watchlist: watchlistRepo,
		log:       log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string { return "refresh_prices" }

// Run refreshes watched symbols first (so new watchlist entries get cached),
// then every symbol already in the cache.
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	watched, err := j.watchlist.AllSymbols()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to list watched symbols")
	}
	for _, sym := range watched {
		if err := j.history.Refresh(ctx, sym); err != nil {
			j.log.Warn().Err(err).Str("symbol", sym).Msg("Watched symbol refresh failed")
		}
	}

	j.history.RefreshAll(ctx)
	return nil
}

// BackupRunner is the slice of the backup service the job needs.
type BackupRunner interface {
	CreateAndUploadBackup(ctx context.Context) error
	RotateOldBackups(ctx context.Context, retentionDays int) error
}

// BackupJob creates and uploads a database backup archive.
type BackupJob struct {
	backup        BackupRunner
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the periodic backup job
func NewBackupJob(backup BackupRunner, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup:        backup,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run uploads a fresh backup, then prunes old ones. Rotation failure is
// logged but does not fail the job: the new backup is already safe.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := j.backup.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.backup.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
