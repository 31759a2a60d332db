package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/mailextract/internal/model"
)

var (
	// ErrNotFound is returned when a named row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique name is taken.
	ErrDuplicate = errors.New("already exists")
)

// ListFilter controls pagination for record listings. Records are listed
// newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

// StoredEvent is an event as persisted by the calendar sink.
type StoredEvent struct {
	ID        string
	CreatedAt time.Time
	model.EventRecord
}

// StoredTask is a task as persisted by the task sink.
type StoredTask struct {
	ID        string
	CreatedAt time.Time
	model.TaskRecord
}

// StoredContact is a contact as persisted in an address book.
type StoredContact struct {
	ID          string
	AddressBook string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	model.ContactRecord
}

// Store defines the persistence interface for extracted records and the
// category list offered to the model.
type Store interface {
	// === Sinks ===

	CreateEvent(ctx context.Context, rec model.EventRecord) error
	CreateTask(ctx context.Context, rec model.TaskRecord) error
	CreateContact(ctx context.Context, rec model.ContactRecord, addressBook string) error

	// === Listings ===

	ListEvents(ctx context.Context, filter ListFilter) ([]StoredEvent, error)
	ListTasks(ctx context.Context, filter ListFilter) ([]StoredTask, error)
	ListContacts(ctx context.Context, addressBook string) ([]StoredContact, error)

	// === Categories ===

	Categories(ctx context.Context) ([]string, error)
	AddCategory(ctx context.Context, name string) error
	RemoveCategory(ctx context.Context, name string) error

	Close() error
}
