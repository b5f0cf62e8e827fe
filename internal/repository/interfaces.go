package repository

import (
	"errors"

	"potholewatch/internal/model"
)

// Reserved keys in the key-value store, one per collection.
const (
	HistoryKey = "detectionHistory"
	ReportsKey = "potholeReports"
	ThemeKey   = "theme-preference"
)

var (
	// ErrNotFound is returned when a record or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when appending a record whose id already exists.
	ErrDuplicate = errors.New("duplicate id")
)

// UpdateFunc receives the current value (ok is false when the key is absent)
// and returns the value to store. Returning an error aborts the update.
type UpdateFunc func(current string, ok bool) (string, error)

// KeyValueStore is a durable string-keyed mapping.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	// Update performs an atomic read-modify-write of one key.
	Update(key string, fn UpdateFunc) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// HistoryRepository is the append-only detection history log.
type HistoryRepository interface {
	Append(result model.DetectionResult) error
	All() ([]model.DetectionResult, error)
}

// ReportRepository holds municipality reports.
type ReportRepository interface {
	// Create operations
	Append(report model.Report) error

	// Read operations
	All() ([]model.Report, error)
	GetByID(id string) (model.Report, error)

	// Update operations
	Update(id string, patch model.ReportPatch) (model.Report, error)
}

// PreferenceRepository holds user interface preferences.
type PreferenceRepository interface {
	Theme() (string, error)
	SetTheme(theme string) error
}
