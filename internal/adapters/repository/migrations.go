package repository

import "embed"

// Migrations holds the remote schema, in golang-migrate file naming.
//
//go:embed migrations/*.sql
var Migrations embed.FS
