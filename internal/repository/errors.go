package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// unique制約違反
	ErrDuplicate = errors.New("duplicate")
)
