package service

import "errors"

var (
	ErrInvalidPost     = errors.New("invalid post")
	ErrPostNotFound    = errors.New("post not found")
	ErrPostPublishing  = errors.New("post is being published")
	ErrAccountNotFound = errors.New("social account not found")
	ErrInvalidUser     = errors.New("user is not valid")
)
