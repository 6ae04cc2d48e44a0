package domain

import "go.trai.ch/zerr"

var (
	// ErrSectionNotFound indicates an operation referenced an unknown section id.
	ErrSectionNotFound = zerr.New("section not found")

	// ErrLoaderNotRegistered indicates a refresh was requested for a section
	// that has never been loaded through the coordinator.
	ErrLoaderNotRegistered = zerr.New("no loader registered for section")

	// ErrDuplicateSection indicates a section id was registered twice.
	ErrDuplicateSection = zerr.New("duplicate section id")

	// ErrCoordinatorClosed indicates an operation was issued after Close.
	ErrCoordinatorClosed = zerr.New("coordinator is closed")

	// ErrRetriesExhausted wraps the final loader error once all attempts fail.
	ErrRetriesExhausted = zerr.New("retries exhausted")

	// ErrAllSectionsFailed indicates a total-batch failure: every section in
	// a batch load failed.
	ErrAllSectionsFailed = zerr.New("all sections failed to load")

	// ErrInvalidRetryPolicy indicates negative retry or delay settings.
	ErrInvalidRetryPolicy = zerr.New("invalid retry policy")

	// ErrConfigNotFound indicates no loadstate.yaml was found walking up
	// from the working directory.
	ErrConfigNotFound = zerr.New("configuration file not found")

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrInvalidDuration indicates a duration field could not be parsed.
	ErrInvalidDuration = zerr.New("invalid duration")

	// ErrUnknownSection indicates a CLI target that is not in the config.
	ErrUnknownSection = zerr.New("unknown section")

	// ErrNoSectionsConfigured indicates the configuration declares nothing
	// to load.
	ErrNoSectionsConfigured = zerr.New("no sections configured")
)
