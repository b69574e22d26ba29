package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Sync errors
	ErrManifestFetch = fmt.Errorf("manifest fetch failed")
	ErrTransfer      = fmt.Errorf("transfer failed")
	ErrFilesystem    = fmt.Errorf("filesystem error")
	ErrUnexpected    = fmt.Errorf("unexpected sync failure")
	ErrSyncBusy      = fmt.Errorf("sync already in progress")

	// Slideshow errors
	ErrEmptySlideshow = fmt.Errorf("slideshow requires at least one item")

	// Persistence errors
	ErrPassNotFound = fmt.Errorf("sync pass not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
