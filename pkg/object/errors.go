package object

import "errors"

var (
	// ErrNoShow is returned by OpsFuncs.Show when no show function is set.
	ErrNoShow = errors.New("attribute has no show operation")

	// ErrNoStore is returned by OpsFuncs.Store when no store function is set.
	ErrNoStore = errors.New("attribute has no store operation")
)
