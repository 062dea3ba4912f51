package store

import (
	"context"

	"github.com/asklly/asklly/internal/profile"
)

// Store provides database access to the rest of the system. It delegates to
// a Driver so the postgres and sqlite backends stay interchangeable.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new Store backed by the given driver.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		profile: profile,
		driver:  driver,
	}
}

// Migrate applies the schema for the active driver.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.driver.Close()
}

// GetDriver exposes the raw driver, mainly for tests.
func (s *Store) GetDriver() Driver {
	return s.driver
}
