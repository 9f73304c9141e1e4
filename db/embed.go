// Package db provides the embedded database schema and the bundled catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedCatalog is the menu loaded when the catalog cache is empty. It uses the
// upstream restaurant detail document format.
//
//go:embed seed/catalog.json
var SeedCatalog []byte
