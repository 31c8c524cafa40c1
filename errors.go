package filmmap

import "errors"

var (
	// ErrMalformedLine is returned for dataset lines with fewer than two
	// non-empty tab-separated fields. Such lines are skipped.
	ErrMalformedLine = errors.New("malformed dataset line")

	// ErrUnresolvableLocation is returned when every narrowing candidate of a
	// location failed to geocode. The record is skipped.
	ErrUnresolvableLocation = errors.New("unresolvable location")

	// ErrNotFound is returned by a Geocoder when the query has no result.
	ErrNotFound = errors.New("location not found")

	// ErrDatasetUnreadable is the only error that aborts a run.
	ErrDatasetUnreadable = errors.New("dataset unreadable")

	// ErrInvalidCoordinate reports a latitude/longitude outside the valid range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
