package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return mapForeignKey(pqErr)

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Invalid text representation (22P02), e.g. a malformed UUID
	case "22P02":
		return errors.ValidationField("input", "malformed value: "+pqErr.Message)

	default:
		return nil
	}
}

// MapError maps err to an AppError: known postgres violations keep their
// meaning, everything else becomes a storage error for op.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := MapPQError(err); mapped != nil {
		return mapped
	}
	return errors.Storage(op, err)
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity"):
		return errors.ValidationField("quantity", "must be greater than 0")

	case strings.Contains(constraint, "minimum_stock"):
		return errors.ValidationField("minimum_stock", "must not be negative")

	case strings.Contains(constraint, "average_cost"):
		return errors.ValidationField("average_cost", "must not be negative")

	case strings.Contains(constraint, "cost_per_unit"):
		return errors.ValidationField("cost_per_unit", "must not be negative")

	case strings.Contains(constraint, "transaction_type"):
		return errors.ValidationField("transaction_type", "must be one of: purchase, sale, adjustment_in, adjustment_out")

	case strings.Contains(constraint, "status"):
		return errors.ValidationField("status", "must be one of: normal, low, critical")

	default:
		return errors.ValidationField("data", "failed check "+constraint)
	}
}

// mapForeignKey names the missing reference so the caller can fix its input.
func mapForeignKey(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "unit_id"):
		return errors.ValidationField("unit_id", "unit does not exist")
	case strings.Contains(constraint, "category_id"):
		return errors.ValidationField("category_id", "category does not exist")
	case strings.Contains(constraint, "supplier_id"):
		return errors.ValidationField("supplier_id", "supplier does not exist")
	case strings.Contains(constraint, "inventory_item_id"):
		return errors.NotFound("inventory item")
	default:
		return errors.BadRequest("referenced record does not exist")
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "sku"):
		return "an item with this SKU already exists"
	case strings.HasPrefix(constraint, "categories"):
		return "a category with this name already exists"
	case strings.HasPrefix(constraint, "suppliers"):
		return "a supplier with this name already exists"
	case strings.HasPrefix(constraint, "units"):
		return "a unit with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
