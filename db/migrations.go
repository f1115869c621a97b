// Package db holds the schema migrations, one directory per database driver.
package db

import "embed"

//go:embed pg/*.sql sqlite/*.sql
var Migrations embed.FS
