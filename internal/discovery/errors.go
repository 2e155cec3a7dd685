package discovery

import "errors"

var (
	// ErrConfiguration is returned for a missing or invalid option. It is
	// raised before any connection attempt.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnection is returned when the hypervisor cannot be reached or
	// rejects a pass-level query.
	ErrConnection = errors.New("connection error")

	// ErrLookup marks a per-domain query that failed, typically because the
	// domain vanished after it was listed. It never aborts a pass.
	ErrLookup = errors.New("lookup error")

	// ErrGrouping is returned when compose, groups or keyed_groups fail in
	// strict mode.
	ErrGrouping = errors.New("grouping error")
)
