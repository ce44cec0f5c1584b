package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tieubaoca/pdf-chat-be/repository"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
)

const DefaultStatusRetention = time.Hour

// StatusTracker records ingestion progress per file id. Records older than
// the retention window are purged lazily whenever a status is read.
type StatusTracker struct {
	repo      repository.StatusRepo
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger

	// serialises Update's read-modify-write
	mu sync.Mutex
}

type StatusTrackerOption func(*StatusTracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StatusTrackerOption {
	return func(t *StatusTracker) { t.now = now }
}

func WithRetention(d time.Duration) StatusTrackerOption {
	return func(t *StatusTracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

func WithTrackerLogger(l *zap.Logger) StatusTrackerOption {
	return func(t *StatusTracker) { t.logger = utils.OrNop(l) }
}

func NewStatusTracker(repo repository.StatusRepo, opts ...StatusTrackerOption) *StatusTracker {
	t := &StatusTracker{
		repo:      repo,
		retention: DefaultStatusRetention,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init creates a pending record for fileID, replacing any previous one.
func (t *StatusTracker) Init(ctx context.Context, fileID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repo.Put(ctx, &types.StatusRecord{
		FileID:    fileID,
		Status:    types.STATUS_PENDING,
		Progress:  0,
		StartTime: t.now(),
	})
}

// Update changes status, progress and error message of an existing record.
// Unknown ids are ignored. The start time is kept.
func (t *StatusTracker) Update(ctx context.Context, fileID, status string, progress int, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.repo.Get(ctx, fileID)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	record.Status = status
	record.Progress = clampProgress(progress)
	record.ErrorMessage = ""
	if status == types.STATUS_ERROR {
		record.ErrorMessage = errMsg
	}
	return t.repo.Put(ctx, record)
}

// Get purges expired records and returns the one for fileID, or
// types.ErrNotFound.
func (t *StatusTracker) Get(ctx context.Context, fileID string) (*types.StatusRecord, error) {
	if err := t.purgeExpired(ctx); err != nil {
		return nil, err
	}
	return t.repo.Get(ctx, fileID)
}

func (t *StatusTracker) purgeExpired(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.repo.List(ctx)
	if err != nil {
		return err
	}
	now := t.now()
	var expired []string
	for _, r := range records {
		if now.Sub(r.StartTime) > t.retention {
			expired = append(expired, r.FileID)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	t.logger.Debug("purging expired ingestion status", zap.Strings("files", expired))
	return t.repo.Delete(ctx, expired...)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
