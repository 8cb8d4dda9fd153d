package service

import "errors"

// Errors shared by the session and course managers so transports can map them
// without importing the storage packages.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("course not found")
	ErrInvalidConfig   = errors.New("invalid course")
)
