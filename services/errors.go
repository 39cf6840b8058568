package services

import "errors"

var (
	// ErrNotConfigured means no generation credential is set for the process
	ErrNotConfigured = errors.New("generation credential not configured")
	// ErrEmptyMessage means the request carried a missing or blank message
	ErrEmptyMessage = errors.New("message cannot be empty")
)
