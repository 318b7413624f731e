package domain

import "errors"

var (
	ErrNoResults    = errors.New("no results")
	ErrNotConnected = errors.New("transport not connected")
	ErrEmptyPool    = errors.New("device pool is empty")
)
