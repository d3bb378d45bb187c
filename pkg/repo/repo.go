// Package repo defines the generic Repository interface used by the lab
// catalog, plus backing implementations.
package repo

import "context"

// Repository is a generic store for catalog entities. Save is an upsert
// keyed on the entity's ID.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Save(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
	// Distinct returns the sorted distinct non-empty values of a property
	// across all stored entities.
	Distinct(ctx context.Context, key string) ([]string, error)
}

// ListOpts controls pagination and filtering for List operations.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
