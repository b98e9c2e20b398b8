package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema migration, registered by the files of this package.
var Migrations = migrate.NewMigrations() //nolint:gochecknoglobals // -
