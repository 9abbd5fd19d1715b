//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // registered as "sqlite3"
)

const cgoDriverAvailable = true
