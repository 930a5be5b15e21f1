// Package migrations holds the bun migrations for the quizzes and results tables.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
