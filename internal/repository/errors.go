package repository

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrInvalidInput    = errors.New("invalid input parameters")
)
