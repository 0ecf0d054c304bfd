package scoring

import "errors"

// ErrInvalidIndex is returned when the sub-scores multiply to a value that cannot be ranked.
var ErrInvalidIndex = errors.New("invalid surrender index")
