package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

// Reference is one of the named lookup rows items point at
type Reference interface {
	domain.Category | domain.Supplier | domain.Unit
}

// ReferenceRepository implements get-or-create and listing for one
// reference table. Names are unique per owner ignoring case.
type ReferenceRepository[T Reference] struct {
	db       *database.DB
	table    string
	resource string
	columns  []string
	attrs    map[string]bool
}

// NewCategoryRepository creates the categories repository
func NewCategoryRepository(db *database.DB) *ReferenceRepository[domain.Category] {
	return &ReferenceRepository[domain.Category]{
		db:       db,
		table:    "categories",
		resource: "category",
		columns:  []string{"id", "owner_id", "name", "created_at"},
	}
}

// NewSupplierRepository creates the suppliers repository
func NewSupplierRepository(db *database.DB) *ReferenceRepository[domain.Supplier] {
	return &ReferenceRepository[domain.Supplier]{
		db:       db,
		table:    "suppliers",
		resource: "supplier",
		columns:  []string{"id", "owner_id", "name", "contact_email", "phone", "created_at"},
		attrs:    map[string]bool{"contact_email": true, "phone": true},
	}
}

// NewUnitRepository creates the units repository
func NewUnitRepository(db *database.DB) *ReferenceRepository[domain.Unit] {
	return &ReferenceRepository[domain.Unit]{
		db:       db,
		table:    "units",
		resource: "unit",
		columns:  []string{"id", "owner_id", "name", "abbreviation", "created_at"},
		attrs:    map[string]bool{"abbreviation": true},
	}
}

// GetOrCreate returns the row named name, inserting it when the owner has
// none. attrs are optional extra columns, written only on insert.
// created reports whether a new row was inserted.
func (r *ReferenceRepository[T]) GetOrCreate(ctx context.Context, name string, attrs map[string]*string) (row *T, created bool, err error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, false, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errors.ValidationField("name", "must not be empty")
	}

	cols := []string{"id", "owner_id", "name"}
	args := []interface{}{uuid.New().String(), ownerID, name}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if !r.attrs[k] {
			return nil, false, errors.ValidationField(k, "unknown field")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cols = append(cols, k)
		args = append(args, attrs[k])
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	// A concurrent insert of the same name loses the race on the unique
	// index and falls through to the lookup below.
	insert := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (owner_id, lower(name)) DO NOTHING RETURNING %s`,
		r.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), r.selectList(),
	)

	var out T
	err = sqlx.GetContext(ctx, r.db.Ext(ctx), &out, insert, args...)
	switch {
	case err == nil:
		return &out, true, nil
	case err != sql.ErrNoRows:
		return nil, false, database.MapError("create "+r.resource, err)
	}

	existing, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByName looks a row up by trimmed, case-insensitive name
func (r *ReferenceRepository[T]) FindByName(ctx context.Context, name string) (*T, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 AND lower(name) = lower($2)`, r.selectList(), r.table)

	var out T
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &out, query, ownerID, strings.TrimSpace(name)); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(r.resource)
		}
		return nil, database.MapError("find "+r.resource, err)
	}
	return &out, nil
}

// GetByID returns one row of the owner
func (r *ReferenceRepository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND owner_id = $2`, r.selectList(), r.table)

	var out T
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &out, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(r.resource)
		}
		return nil, database.MapError("get "+r.resource, err)
	}
	return &out, nil
}

// Exists reports whether id names a row of the owner
func (r *ReferenceRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND owner_id = $2)`, r.table)

	var exists bool
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &exists, query, id, ownerID); err != nil {
		return false, database.MapError("check "+r.resource, err)
	}
	return exists, nil
}

// List returns every row of the owner ordered by name
func (r *ReferenceRepository[T]) List(ctx context.Context) ([]T, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY lower(name)`, r.selectList(), r.table)

	rows := []T{}
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, query, ownerID); err != nil {
		return nil, database.MapError("list "+r.resource, err)
	}
	return rows, nil
}

func (r *ReferenceRepository[T]) selectList() string {
	return strings.Join(r.columns, ", ")
}
