package db

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent writer changed a record read by an
	// atomic body. RunAtomic retries on it.
	ErrConflict = errors.New("write conflict")

	ErrTransactionFailed = errors.New("transaction failed")

	ErrDuplicate = errors.New("already exists")
)
