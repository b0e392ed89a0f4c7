package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SequenceCounter stores the last issued value for one calendar day.
// Keyed by the DDMMYYYY day string; mutated only by an atomic
// increment-and-fetch, never decremented, never deleted.
type SequenceCounter struct {
	bun.BaseModel `bun:"table:sequence_counters"`

	DayKey    string    `bun:"day_key,pk" json:"day_key"`
	Sequence  int64     `bun:"sequence,notnull" json:"sequence"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}
