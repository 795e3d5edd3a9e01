package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Access code operations. ListCodes returns an independent copy of the
	// stored sequence; callers may mutate the result freely.
	ListCodes() ([]AccessCode, error)
	AppendCode(c AccessCode) error
	RemoveCode(index int) error

	// Panel state, keyed by device id.
	GetPanelAction(deviceID string) (string, error)
	SavePanelAction(deviceID, action string) error

	// Close the store
	Close() error
}
