// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidMode is returned when a review mode is not one of the known modes.
	ErrInvalidMode = errors.New("invalid review mode")

	// ErrInvalidStatus is returned when a candidate or exam status is not valid.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptySubject is returned when a subject identifier is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")

	// ErrEmptyTargetID is returned when a target item identifier is empty.
	ErrEmptyTargetID = errors.New("target ID cannot be empty")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
