// Package errs provides standardized error types for the ordering service.
//
// Every error follows the same pattern: a sentinel variable for
// errors.Is classification (e.g. ErrValueIsInvalid), a struct carrying
// the error details, constructors with and without a cause, an Error()
// method for formatting and an Unwrap() method returning the sentinel.
//
// Validation errors (ValueIsRequiredError, ValueIsInvalidError,
// ValueIsOutOfRangeError, ObjectNotFoundError, VersionIsInvalidError)
// cover constructor and argument checks. The lifecycle errors
// (InvalidStateTransitionError, ItemNotFoundError, RoutingNotFoundError,
// PersistenceFailureError, PublishFailureError,
// DownstreamCallFailureError) classify order command rejections and
// infrastructure faults so callers can map them to transport status
// codes and retry decisions without string matching.
package errs
