package database

import "errors"

var (
	// ErrInvalidAsset is returned for create requests without type or subtype.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrParentNotFound is returned when the parent of an asset does not exist.
	ErrParentNotFound = errors.New("parent asset not found")
)
