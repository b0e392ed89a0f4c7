package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration statuses. CHECKED_IN is terminal; CANCELLED is reachable from
// REGISTERED/CONFIRMED only, never from CHECKED_IN.
const (
	StatusRegistered = "registered"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusCancelled  = "cancelled"
	StatusWaitlisted = "waitlisted"
)

// Registration is one (visitor, exhibition) pairing. The pairing is unique
// at the storage layer; the application-level pre-check is only a fast path.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID                 string     `bun:"id,pk" json:"id"`
	RegistrationNumber string     `bun:"registration_number,unique" json:"registration_number"`
	VisitorID          string     `bun:"visitor_id,unique:reg_visitor_exhibition" json:"visitor_id"`
	ExhibitionID       string     `bun:"exhibition_id,unique:reg_visitor_exhibition" json:"exhibition_id"`
	Category           string     `bun:"category" json:"category"`
	TierID             string     `bun:"tier_id,nullzero" json:"tier_id,omitempty"`
	DaysSelected       []int      `bun:"days_selected,type:jsonb" json:"days_selected,omitempty"`
	AmountDue          float64    `bun:"amount_due" json:"amount_due"`
	Status             string     `bun:"status" json:"status"`
	CheckInTime        *time.Time `bun:"check_in_time,nullzero" json:"check_in_time,omitempty"`
	QRPayload          string     `bun:"qr_payload" json:"qr_payload"`
	BadgeFile          string     `bun:"badge_file" json:"badge_file,omitempty"`
	CreatedAt          time.Time  `bun:"created_at" json:"created_at"`
}
