// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all backend tables. Every statement
// is idempotent so the schema can be applied on each start.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default seed data used by cmd/seed-db.
//
//go:embed seed/catalog.json
var Catalog []byte
