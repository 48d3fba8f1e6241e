package service

import "errors"

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrSubscription   = errors.New("failed to fetch items")
	ErrFieldsRequired = errors.New("all fields are required")
	ErrNotReady       = errors.New("database not initialized")
	ErrWrite          = errors.New("failed to add item")
)
