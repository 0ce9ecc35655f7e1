// Package blueprint defines record schemas and the typed field values they hold.
//
// A Schema names a record type. Its required fields are matched against file names to
// identify a record, its optional fields are matched afterwards with a rule that may
// reference the record's required values as {name} placeholders.
//
// Every field has a Kind from a closed set: Scalar, Path, ScalarList, PathList and
// Derived. Kind-specific behaviour (converting a match, merging observations, storage
// encoding) is dispatched through a table indexed by Kind.
//
// Merging follows these rules:
//
//	kind     created                                   deleted
//	scalar   adopt when empty, conflict when differs    clear when equal, conflict otherwise
//	list     union preserving order                     remove observed elements
//	derived  adopt when empty, warn and keep newest     never reverts
//
// Scalar and path conflicts are returned as *ConflictError.
package blueprint
