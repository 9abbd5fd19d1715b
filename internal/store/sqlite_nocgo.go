//go:build !cgo

package store

const cgoDriverAvailable = false
