package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Visitor is the cross-exhibition identity record. The normalized phone
// number is the only matching key; email is allowed to be shared between
// several people and is never used for lookup.
type Visitor struct {
	bun.BaseModel `bun:"table:visitors"`

	ID                 string            `bun:"id,pk" json:"id"`
	Phone              string            `bun:"phone,nullzero,unique" json:"phone,omitempty"`
	Email              string            `bun:"email" json:"email,omitempty"`
	Name               string            `bun:"name" json:"name"`
	Company            string            `bun:"company" json:"company,omitempty"`
	Designation        string            `bun:"designation" json:"designation,omitempty"`
	Address            string            `bun:"address" json:"address,omitempty"`
	City               string            `bun:"city" json:"city,omitempty"`
	State              string            `bun:"state" json:"state,omitempty"`
	Pincode            string            `bun:"pincode" json:"pincode,omitempty"`
	CustomFields       map[string]string `bun:"custom_fields,type:jsonb" json:"custom_fields,omitempty"`
	TotalRegistrations int               `bun:"total_registrations" json:"total_registrations"`
	ExhibitionIDs      []string          `bun:"exhibition_ids,type:jsonb" json:"exhibition_ids,omitempty"`
	CreatedAt          time.Time         `bun:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `bun:"updated_at" json:"updated_at"`
}

// VisitorSummary is the trimmed view returned by registration and check-in
// responses.
type VisitorSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

func (v *Visitor) Summary() VisitorSummary {
	return VisitorSummary{
		ID:      v.ID,
		Name:    v.Name,
		Phone:   v.Phone,
		Email:   v.Email,
		Company: v.Company,
	}
}
