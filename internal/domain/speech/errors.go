package speech

import "errors"

// ErrInvalidInput is returned for text that is empty, whitespace only, or not valid UTF-8.
var ErrInvalidInput = errors.New("invalid input text")
