package db

import (
	"github.com/pkg/errors"

	"github.com/lamberr/ragline/internal/profile"
	"github.com/lamberr/ragline/store"
	"github.com/lamberr/ragline/store/db/postgres"
)

// NewDBDriver creates a new db driver based on the profile.
// PostgreSQL is the only supported backend: vector search requires the
// pgvector extension.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := postgres.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
