package db

import (
	"embed"
	"io/fs"
)

//go:embed pg/*.sql
var files embed.FS

// Migrations returns the PostgreSQL migrations shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(files, "pg")
	if err != nil {
		panic(err)
	}
	return sub
}
