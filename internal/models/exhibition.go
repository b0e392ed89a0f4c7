package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Exhibition statuses.
const (
	ExhibitionDraft     = "draft"
	ExhibitionPublished = "published"
	ExhibitionCompleted = "completed"
)

// AllSessionsDay is the sentinel day number meaning "every session",
// overriding itemized per-day pricing.
const AllSessionsDay = 0

type Exhibition struct {
	bun.BaseModel `bun:"table:exhibitions"`

	ID                    string            `bun:"id,pk" json:"id"`
	Name                  string            `bun:"name,notnull" json:"name"`
	Venue                 string            `bun:"venue" json:"venue,omitempty"`
	Status                string            `bun:"status" json:"status"`
	StartDate             time.Time         `bun:"start_date,notnull" json:"start_date"`
	EndDate               time.Time         `bun:"end_date,notnull" json:"end_date"`
	RegistrationStartDate time.Time         `bun:"registration_start_date" json:"registration_start_date"`
	RegistrationEndDate   time.Time         `bun:"registration_end_date" json:"registration_end_date"`
	Paid                  bool              `bun:"paid" json:"paid"`
	BannerURL             string            `bun:"banner_url" json:"banner_url,omitempty"`
	CategoryColors        map[string]string `bun:"category_colors,type:jsonb" json:"category_colors,omitempty"`
	CompletedAt           *time.Time        `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt             time.Time         `bun:"created_at" json:"created_at"`
}

type ExhibitionSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Venue string `json:"venue,omitempty"`
}

func (e *Exhibition) Summary() ExhibitionSummary {
	return ExhibitionSummary{ID: e.ID, Name: e.Name, Venue: e.Venue}
}

// PricingTier prices a paid exhibition. A tier may carry a flat price, a set
// of per-day prices, and an optional all-sessions price used when the
// AllSessionsDay sentinel is selected.
type PricingTier struct {
	bun.BaseModel `bun:"table:pricing_tiers"`

	ID               string          `bun:"id,pk" json:"id"`
	ExhibitionID     string          `bun:"exhibition_id,notnull" json:"exhibition_id"`
	Name             string          `bun:"name" json:"name"`
	Active           bool            `bun:"active" json:"active"`
	Price            float64         `bun:"price" json:"price"`
	DayPrices        map[int]float64 `bun:"day_prices,type:jsonb" json:"day_prices,omitempty"`
	AllSessionsPrice *float64        `bun:"all_sessions_price,nullzero" json:"all_sessions_price,omitempty"`
	StartDate        time.Time       `bun:"start_date" json:"start_date"`
	EndDate          time.Time       `bun:"end_date" json:"end_date"`
}
