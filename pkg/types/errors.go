package types

import "errors"

// Domain errors shared across components
var (
	// Folder registry errors
	ErrFolderNotFound = errors.New("folder not found")
	ErrFolderExists   = errors.New("folder already registered")

	// Job errors
	ErrNoActiveJob = errors.New("no active indexing job")

	// Model resolution errors
	ErrModelNotConfigured = errors.New("model backend not configured")

	// Validation errors
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEmptyFolder  = errors.New("folder name cannot be empty")
	ErrInvalidPath  = errors.New("invalid folder path")
)
