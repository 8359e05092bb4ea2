package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("invalid input")
	ErrCapacity             = errors.New("reservation is full")
	ErrLocked               = errors.New("reservation already sold")
)
