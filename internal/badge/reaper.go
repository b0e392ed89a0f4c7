package badge

import (
	"context"
	"fmt"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

type ReaperDBLayer interface {
	ListExpiredExhibitions(ctx context.Context, cutoff time.Time) ([]models.Exhibition, error)
	ListRegistrationIDsByExhibition(ctx context.Context, exhibitionID string) ([]string, error)
}

// Reaper removes badge files (never database rows) for exhibitions that
// completed more than Grace ago. Purely a disk-space optimization: badges
// are reconstructable from Registration+Visitor+Exhibition records at any
// time, so a deleted file just triggers lazy regeneration if requested.
type Reaper struct {
	DB       ReaperDBLayer
	Store    *Store
	Grace    time.Duration
	Interval time.Duration
	Logger   *logger.Logger
}

func NewReaper(db ReaperDBLayer, store *Store, grace, interval time.Duration, log *logger.Logger) *Reaper {
	return &Reaper{DB: db, Store: store, Grace: grace, Interval: interval, Logger: log}
}

// Run sweeps on a ticker until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep removes all badge versions for registrations of expired exhibitions.
// Errors are logged and never propagated; the next sweep retries naturally.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.Grace)

	exhibitions, err := r.DB.ListExpiredExhibitions(ctx, cutoff)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("BADGE", fmt.Sprintf("retention sweep query failed: %v", err))
		}
		return
	}

	for _, ex := range exhibitions {
		ids, err := r.DB.ListRegistrationIDsByExhibition(ctx, ex.ID)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn("BADGE", fmt.Sprintf("retention sweep for exhibition %s: %v", ex.ID, err))
			}
			continue
		}
		for _, id := range ids {
			r.Store.RemoveAll(id)
		}
		if r.Logger != nil {
			r.Logger.LogBadge(ex.ID, fmt.Sprintf("retention sweep removed badges for %d registrations", len(ids)))
		}
	}
}
