package cache

import "errors"

// ErrNotFound is returned for cache misses.
var ErrNotFound = errors.New("cache: not found")
