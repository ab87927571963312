package backup

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/webhookd/backup-relay/cmd/internal/archive"
	"github.com/webhookd/backup-relay/cmd/internal/artifact"
	"github.com/webhookd/backup-relay/cmd/internal/constants"
	"github.com/webhookd/backup-relay/cmd/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Outcome is the result of one backup cycle
type Outcome int

const (
	// Success means the artifact was created and relayed
	Success Outcome = iota
	// AlreadyInProgress means another cycle was still running, nothing was done
	AlreadyInProgress
	// ArchiveFailed means the archiver failed, no transfer was attempted
	ArchiveFailed
	// TransferFailed means the artifact was created but could not be relayed,
	// the artifact remains in the backup folder
	TransferFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AlreadyInProgress:
		return "already in progress"
	case ArchiveFailed:
		return "archive failed"
	case TransferFailed:
		return "transfer failed"
	default:
		return "unknown"
	}
}

// Relayer transfers an artifact to a notification endpoint
type Relayer interface {
	Relay(ctx context.Context, path string, sizeBytes int64) error
}

// Backuper takes backups of the configured folder and relays them. At most
// one cycle executes at any instant, also when cycles get triggered out of
// band through the api server.
type Backuper struct {
	log            *zap.SugaredLogger
	archiver       archive.Archiver
	store          *artifact.Store
	relayer        Relayer
	metrics        *metrics.Metrics
	inProgress     *semaphore.Weighted
	folderToBackup string
	archiveTimeout time.Duration
}

func New(log *zap.SugaredLogger, folderToBackup string, archiver archive.Archiver, store *artifact.Store, relayer Relayer, metrics *metrics.Metrics, archiveTimeout time.Duration) *Backuper {
	return &Backuper{
		log:            log,
		archiver:       archiver,
		store:          store,
		relayer:        relayer,
		metrics:        metrics,
		inProgress:     semaphore.NewWeighted(1),
		folderToBackup: folderToBackup,
		archiveTimeout: archiveTimeout,
	}
}

// RunOnce executes a single backup cycle. When a cycle is already in
// progress it returns immediately without any side effects.
func (b *Backuper) RunOnce(ctx context.Context) Outcome {
	if !b.inProgress.TryAcquire(1) {
		b.log.Infow("backup already in progress, skipping")
		return AlreadyInProgress
	}
	defer b.inProgress.Release(1)

	archiveCtx, cancel := context.WithTimeout(ctx, b.archiveTimeout)
	defer cancel()

	dst := b.store.NextArchivePath(b.archiver.Extension())

	art, err := b.archiver.Archive(archiveCtx, b.folderToBackup, dst)
	if err != nil {
		b.metrics.CountError("archive")
		b.log.Errorw("error creating backup", "error", err)
		return ArchiveFailed
	}
	b.log.Infow("backup created successfully", "path", art.Path, "size", art.Size)

	err = b.relayer.Relay(ctx, art.Path, art.Size)
	if err != nil {
		b.metrics.CountError("relay")
		b.log.Errorw("error relaying backup", "error", err)
		return TransferFailed
	}
	b.log.Infow("relayed backup to webhook")

	b.metrics.CountBackup(art.Size)

	return Success
}

// Start runs backup cycles until the given context is done, waiting the
// cooldown between the end of one cycle and the start of the next. The
// cooldown is fixed for the process lifetime.
func (b *Backuper) Start(ctx context.Context, cooldown time.Duration) {
	b.log.Infow("starting periodic backups", "cooldown", cooldown.String())

	for {
		outcome := b.RunOnce(ctx)
		b.log.Infow("backup cycle finished", "outcome", outcome.String(), "next", time.Now().Add(cooldown).String())

		select {
		case <-ctx.Done():
			b.log.Info("received stop signal, shutting down")
			return
		case <-time.After(cooldown):
		}
	}
}

// ParseCooldown parses the configured cooldown duration. Only the pattern
// "*/<N> * * * *" is recognized with <N> taken as minutes, anything else
// falls back to the default cadence.
func ParseCooldown(log *zap.SugaredLogger, cooldown string) time.Duration {
	minutes, ok := cooldownMinutes(cooldown)
	if !ok {
		log.Warnw("could not parse cooldown duration, using default", "cooldown", cooldown, "default-minutes", constants.DefaultCooldownMinutes)
		minutes = constants.DefaultCooldownMinutes
	}

	return time.Duration(minutes) * time.Minute
}

func cooldownMinutes(cooldown string) (int, bool) {
	rest, found := strings.CutPrefix(cooldown, "*/")
	if !found {
		return 0, false
	}

	field, _, _ := strings.Cut(rest, " ")

	minutes, err := strconv.Atoi(field)
	if err != nil || minutes <= 0 {
		return 0, false
	}

	return minutes, true
}
