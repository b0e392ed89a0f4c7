package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-registration/internal/domain"
	"ms-registration/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- REGISTRATIONS ----------------

func (d *DB) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	_, err := d.Bun.NewInsert().Model(reg).Exec(ctx)
	return err
}

func (d *DB) GetRegistrationByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetRegistrationByNumber(ctx context.Context, number string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("registration_number = ?", number).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %s: %w", number, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetRegistrationByVisitorAndExhibition(ctx context.Context, visitorID, exhibitionID string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("visitor_id = ?", visitorID).
		Where("exhibition_id = ?", exhibitionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// MarkCheckedIn performs the conditional check-in transition: the update
// succeeds only while check_in_time is still unset, which makes the
// at-most-once guarantee independent of the lock layer.
func (d *DB) MarkCheckedIn(ctx context.Context, number string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("status = ?", models.StatusCheckedIn).
		Set("check_in_time = ?", at).
		Where("registration_number = ?", number).
		Where("check_in_time IS NULL").
		Where("status <> ?", models.StatusCancelled).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// SetBadgeFile records the latest known badge artifact name. Informational
// only; the file store's latest-by-timestamp rule is authoritative.
func (d *DB) SetBadgeFile(ctx context.Context, registrationID, fileName string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("badge_file = ?", fileName).
		Where("id = ?", registrationID).
		Exec(ctx)
	return err
}

// ---------------- VISITOR COUNTERS ----------------

// BumpVisitorRegistration increments the visitor's registration counter with
// a single SQL increment (never read-modify-write) and refreshes the
// denormalized exhibition set from the registrations table, which the unique
// (visitor, exhibition) index keeps duplicate-free.
func (d *DB) BumpVisitorRegistration(ctx context.Context, visitorID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Visitor)(nil)).
		Set("total_registrations = total_registrations + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", visitorID).
		Exec(ctx)
	if err != nil {
		return err
	}

	var exhibitionIDs []string
	err = d.Bun.NewSelect().
		ColumnExpr("DISTINCT exhibition_id").
		Table("registrations").
		Where("visitor_id = ?", visitorID).
		Scan(ctx, &exhibitionIDs)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(exhibitionIDs)
	if err != nil {
		return err
	}
	_, err = d.Bun.NewUpdate().
		Model((*models.Visitor)(nil)).
		Set("exhibition_ids = ?", string(encoded)).
		Where("id = ?", visitorID).
		Exec(ctx)
	return err
}

func (d *DB) GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error) {
	var v models.Visitor
	err := d.Bun.NewSelect().
		Model(&v).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visitor %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ---------------- EXHIBITIONS ----------------

func (d *DB) GetExhibitionByID(ctx context.Context, id string) (*models.Exhibition, error) {
	var ex models.Exhibition
	err := d.Bun.NewSelect().
		Model(&ex).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exhibition %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (d *DB) GetPricingTier(ctx context.Context, id string) (*models.PricingTier, error) {
	var tier models.PricingTier
	err := d.Bun.NewSelect().
		Model(&tier).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pricing tier %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// ListExpiredExhibitions returns exhibitions completed before the cutoff,
// used by the badge retention sweep.
func (d *DB) ListExpiredExhibitions(ctx context.Context, cutoff time.Time) ([]models.Exhibition, error) {
	var exhibitions []models.Exhibition
	err := d.Bun.NewSelect().
		Model(&exhibitions).
		Where("status = ?", models.ExhibitionCompleted).
		Where("completed_at IS NOT NULL").
		Where("completed_at < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return exhibitions, nil
}

func (d *DB) ListRegistrationIDsByExhibition(ctx context.Context, exhibitionID string) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().
		Column("id").
		Table("registrations").
		Where("exhibition_id = ?", exhibitionID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
