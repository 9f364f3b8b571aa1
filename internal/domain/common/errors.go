package common

import "errors"

var (
	ErrNotFound      = errors.New("requested item not found")
	ErrConflict      = errors.New("item already exists or conflict")
	ErrUnauthorized  = errors.New("authentication required or invalid credentials")
	ErrForbidden     = errors.New("action forbidden")
	ErrBadRequest    = errors.New("bad request")
	ErrEmptyFile     = errors.New("file is empty")
	ErrUnknownLayout = errors.New("could not infer column layout")
)
