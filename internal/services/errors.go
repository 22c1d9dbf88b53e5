package services

import "errors"

// Sentinel errors the HTTP layer maps onto status codes.
var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidAgents      = errors.New("agents not found or don't belong to user")
	ErrEmptyChat          = errors.New("group chat has no agents")
)
