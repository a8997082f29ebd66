package storage

import "errors"

// Errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a sell or attempt record with the same
	// key was already journaled. Journal records are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: journal record already exists")

	// ErrInvalidInput is returned for nil records or records missing their key.
	ErrInvalidInput = errors.New("invalid input")
)
