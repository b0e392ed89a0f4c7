// Package visitor resolves registration input to a single canonical Visitor
// record. Phone is the only identity key; repeat registrations only ever
// fill empty fields, so the most complete visitor profile wins over time.
package visitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-registration/internal/domain"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// Input carries the visitor attributes of a registration request. Standard
// fields duplicated into CustomFields are stripped before persistence.
type Input struct {
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	Company      string            `json:"company"`
	Designation  string            `json:"designation"`
	Address      string            `json:"address"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	Pincode      string            `json:"pincode"`
	CustomFields map[string]string `json:"custom_fields"`
}

type DBLayer interface {
	GetVisitorByPhone(ctx context.Context, phone string) (*models.Visitor, error)
	CreateVisitor(ctx context.Context, v *models.Visitor) error
	UpdateVisitor(ctx context.Context, v *models.Visitor, columns ...string) error
}

type Resolver struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewResolver(db DBLayer, log *logger.Logger) *Resolver {
	return &Resolver{DB: db, Logger: log}
}

// Resolve finds or creates the canonical Visitor for the given input.
// An existing visitor (matched by normalized phone) is updated additively:
// populated fields are never overwritten.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*models.Visitor, error) {
	phone := NormalizePhone(in.Phone)

	if phone == "" && in.Email == "" {
		return nil, domain.Validationf("at least one of email or phone is required")
	}

	if phone != "" {
		existing, err := r.DB.GetVisitorByPhone(ctx, phone)
		if err == nil {
			return r.merge(ctx, existing, in)
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("visitor lookup by phone: %w", err)
		}
	}

	now := time.Now()
	v := &models.Visitor{
		ID:           uuid.NewString(),
		Phone:        phone,
		Email:        in.Email,
		Name:         in.Name,
		Company:      in.Company,
		Designation:  in.Designation,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		Pincode:      in.Pincode,
		CustomFields: StripStandardFields(in.CustomFields),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.DB.CreateVisitor(ctx, v); err != nil {
		// Two concurrent requests can both pass the not-found check for
		// the same new phone; the unique index catches the loser.
		if isDuplicatePhone(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePhone, phone)
		}
		return nil, fmt.Errorf("visitor create: %w", err)
	}

	if r.Logger != nil {
		r.Logger.LogDatabase("INSERT", "visitors", fmt.Sprintf("created visitor %s", v.ID))
	}
	return v, nil
}

// merge writes incoming values into empty fields only and persists the
// changed columns.
func (r *Resolver) merge(ctx context.Context, v *models.Visitor, in Input) (*models.Visitor, error) {
	var changed []string

	fill := func(dst *string, src, column string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = append(changed, column)
		}
	}

	fill(&v.Email, in.Email, "email")
	fill(&v.Name, in.Name, "name")
	fill(&v.Company, in.Company, "company")
	fill(&v.Designation, in.Designation, "designation")
	fill(&v.Address, in.Address, "address")
	fill(&v.City, in.City, "city")
	fill(&v.State, in.State, "state")
	fill(&v.Pincode, in.Pincode, "pincode")

	if incoming := StripStandardFields(in.CustomFields); len(incoming) > 0 {
		if v.CustomFields == nil {
			v.CustomFields = make(map[string]string, len(incoming))
		}
		added := false
		for key, value := range incoming {
			if existing, ok := v.CustomFields[key]; !ok || existing == "" {
				if value != "" {
					v.CustomFields[key] = value
					added = true
				}
			}
		}
		if added {
			changed = append(changed, "custom_fields")
		}
	}

	if len(changed) == 0 {
		return v, nil
	}

	v.UpdatedAt = time.Now()
	changed = append(changed, "updated_at")

	if err := r.DB.UpdateVisitor(ctx, v, changed...); err != nil {
		return nil, fmt.Errorf("visitor merge update: %w", err)
	}
	return v, nil
}
