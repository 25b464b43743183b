package model

import "github.com/rotisserie/eris"

// ErrMalformedInput is returned when a roster or persisted artifact does not
// have the expected shape. It is never coerced into an empty value.
var ErrMalformedInput = eris.New("malformed input")
