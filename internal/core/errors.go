package core

import "errors"

// Failure kinds surfaced to callers. None of these are retried by the core;
// anything not matching one of them is an unexpected internal failure.
var (
	// ErrNotFound: a referenced entity (bill, category, transaction, budget)
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: malformed or out-of-range input. The caller must fix
	// the request and resubmit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists: a uniqueness rule was violated, e.g. two budgets for
	// the same category with overlapping windows.
	ErrAlreadyExists = errors.New("already exists")

	// ErrFailedPrecondition: the entity state forbids the operation, e.g.
	// deleting a category that still has transactions.
	ErrFailedPrecondition = errors.New("failed precondition")
)
