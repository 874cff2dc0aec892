package services

import "errors"

// Service errors
var (
	ErrNotInitialized     = errors.New("service is not initialized")
	ErrAlreadyInitialized = errors.New("service is already initialized")
	ErrPageNotFound       = errors.New("page not found")
	ErrStateKeyNotFound   = errors.New("app state key not found")
	ErrSeedType           = errors.New("app state seed does not match its declared type")
)
