package visitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-registration/internal/database"
	"ms-registration/internal/domain"
	"ms-registration/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetVisitorByPhone(ctx context.Context, phone string) (*models.Visitor, error) {
	var v models.Visitor
	err := d.Bun.NewSelect().
		Model(&v).
		Where("phone = ?", phone).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visitor with phone %s: %w", phone, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
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

func (d *DB) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	_, err := d.Bun.NewInsert().Model(v).Exec(ctx)
	return err
}

func (d *DB) UpdateVisitor(ctx context.Context, v *models.Visitor, columns ...string) error {
	_, err := d.Bun.NewUpdate().
		Model(v).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func isDuplicatePhone(err error) bool {
	return database.IsUniqueViolation(err)
}
