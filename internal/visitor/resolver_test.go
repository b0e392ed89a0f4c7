package visitor_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-registration/internal/domain"
	"ms-registration/internal/models"
	"ms-registration/internal/visitor"
)

func setupResolver(t *testing.T) (*visitor.Resolver, *bun.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = bunDB.NewCreateTable().Model((*models.Visitor)(nil)).Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { bunDB.Close() })
	return visitor.NewResolver(&visitor.DB{Bun: bunDB}, nil), bunDB
}

func TestResolve_CreatesNewVisitor(t *testing.T) {
	r, _ := setupResolver(t)

	v, err := r.Resolve(context.Background(), visitor.Input{
		Name:  "Asha Rao",
		Phone: "+91 98765 43210",
		Email: "asha@example.com",
		CustomFields: map[string]string{
			"Interested In": "Robotics",
			"Email Address": "asha@example.com", // duplicate of a standard field
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "9876543210", v.Phone, "phone must be stored normalized")
	assert.Equal(t, map[string]string{"Interested In": "Robotics"}, v.CustomFields,
		"standard fields must be stripped from the custom bag")
}

func TestResolve_RequiresEmailOrPhone(t *testing.T) {
	r, _ := setupResolver(t)

	_, err := r.Resolve(context.Background(), visitor.Input{Name: "Nobody"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolve_EmailOnlyLegacyVisitor(t *testing.T) {
	r, _ := setupResolver(t)

	v, err := r.Resolve(context.Background(), visitor.Input{
		Name:  "Legacy",
		Email: "legacy@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, v.Phone)
}

func TestResolve_MatchesByPhoneAndFillsEmptyFieldsOnly(t *testing.T) {
	r, _ := setupResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, visitor.Input{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Company: "Acme",
	})
	require.NoError(t, err)

	// Repeat registration for the same phone with a different company and a
	// designation the first one lacked.
	second, err := r.Resolve(ctx, visitor.Input{
		Name:        "A. Rao",
		Phone:       "+919876543210",
		Company:     "Globex",
		Designation: "Engineer",
		Email:       "asha@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same phone must resolve to the same visitor")
	assert.Equal(t, "Acme", second.Company, "populated fields are never overwritten")
	assert.Equal(t, "Asha Rao", second.Name)
	assert.Equal(t, "Engineer", second.Designation, "empty fields are filled in")
	assert.Equal(t, "asha@example.com", second.Email)
}

func TestResolve_EmailIsNeverAMatchKey(t *testing.T) {
	r, _ := setupResolver(t)
	ctx := context.Background()

	shared := "frontdesk@example.com"

	a, err := r.Resolve(ctx, visitor.Input{Name: "First", Phone: "1111111111", Email: shared})
	require.NoError(t, err)

	b, err := r.Resolve(ctx, visitor.Input{Name: "Second", Phone: "2222222222", Email: shared})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "two people may share one email")
}

// racingDB simulates two concurrent requests both passing the not-found
// check for the same new phone: the lookup misses, then the insert hits the
// unique index.
type racingDB struct {
	visitor.DBLayer
}

func (racingDB) GetVisitorByPhone(ctx context.Context, phone string) (*models.Visitor, error) {
	return nil, fmt.Errorf("visitor with phone %s: %w", phone, domain.ErrNotFound)
}

func (racingDB) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	return fmt.Errorf("UNIQUE constraint failed: visitors.phone")
}

func TestResolve_DuplicatePhoneBecomesConflict(t *testing.T) {
	r := visitor.NewResolver(racingDB{}, nil)

	_, err := r.Resolve(context.Background(), visitor.Input{Name: "Loser", Phone: "9876543210"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone,
		"a unique violation on insert must surface as the domain conflict, not a generic error")
}

func TestResolve_CustomFieldsMergeAdditively(t *testing.T) {
	r, _ := setupResolver(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, visitor.Input{
		Phone:        "9876543210",
		Name:         "Asha",
		CustomFields: map[string]string{"Hall": "B2"},
	})
	require.NoError(t, err)

	v, err := r.Resolve(ctx, visitor.Input{
		Phone:        "9876543210",
		CustomFields: map[string]string{"Hall": "C9", "Interested In": "Robotics"},
	})
	require.NoError(t, err)

	assert.Equal(t, "B2", v.CustomFields["Hall"], "existing custom values win")
	assert.Equal(t, "Robotics", v.CustomFields["Interested In"])
}
