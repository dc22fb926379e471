// Package store persists connect attempts and the last loaded view slots.
package store

import (
	"errors"

	"apctl/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Snapshot kinds kept by the store. They match the view event types.
const (
	KindSummary  = "summary"
	KindWANIP    = "wan_ip"
	KindWAN      = "wan"
	KindClients  = "clients"
	KindNetworks = "networks"
)

// Store defines the persistence interface.
type Store interface {
	// Connect history, newest first.
	RecordAttempt(a model.ConnectAttempt) error
	ListAttempts(limit int) ([]model.ConnectAttempt, error)

	// Last known values per snapshot kind, JSON encoded.
	SaveSnapshot(kind string, v any) error
	GetSnapshot(kind string, out any) error

	Close() error
}
