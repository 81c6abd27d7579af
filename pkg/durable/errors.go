package durable

import "errors"

// ErrInvalidConfig is returned by constructors when required
// configuration fields are missing.
var ErrInvalidConfig = errors.New("durable: invalid configuration")
