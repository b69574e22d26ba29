package models

import "time"

var _ Model = (*SyncPass)(nil)

// Model is a persisted record with a stable string id.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface shared by persistence implementations.
//
// Delete is soft: records stay in storage with deleted_at set and List skips them.
type Repository[T Model] interface {
	Create(record T) error
	Get(id string) (T, error)
	Update(record T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
