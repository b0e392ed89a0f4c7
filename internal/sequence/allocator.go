// Package sequence issues per-day registration sequence numbers. The
// increment-and-fetch is a single upsert against the counter row, so two
// writers can never observe the same value; a read-then-write pair would
// race across service instances.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-registration/internal/models"
)

// DayKeyLayout is the calendar-day key format (DDMMYYYY).
const DayKeyLayout = "02012006"

type Allocator struct {
	Bun *bun.DB
}

func NewAllocator(db *bun.DB) *Allocator {
	return &Allocator{Bun: db}
}

// DayKey returns the counter key for the given day.
func DayKey(day time.Time) string {
	return day.Format(DayKeyLayout)
}

// Next returns the next sequence number for the given day, starting at 1.
// Storage unavailability propagates as-is; there is no retry, the caller
// fails the whole registration attempt.
func (a *Allocator) Next(ctx context.Context, day time.Time) (int64, error) {
	counter := &models.SequenceCounter{
		DayKey:    DayKey(day),
		Sequence:  1,
		CreatedAt: time.Now(),
	}

	var seq int64
	_, err := a.Bun.NewInsert().
		Model(counter).
		On("CONFLICT (day_key) DO UPDATE").
		Set("sequence = sequence_counters.sequence + 1").
		Returning("sequence").
		Exec(ctx, &seq)
	if err != nil {
		return 0, fmt.Errorf("sequence allocation for day %s: %w", counter.DayKey, err)
	}
	return seq, nil
}

// NextRegistrationNumber allocates a sequence number and formats it as
// REG-DDMMYYYY-NNNNNN.
func (a *Allocator) NextRegistrationNumber(ctx context.Context, day time.Time) (string, error) {
	seq, err := a.Next(ctx, day)
	if err != nil {
		return "", err
	}
	return FormatRegistrationNumber(day, seq), nil
}

// FormatRegistrationNumber builds the human-readable registration number.
func FormatRegistrationNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("REG-%s-%06d", DayKey(day), seq)
}
