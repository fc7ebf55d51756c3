package vector

import "errors"

// ErrDimensionMismatch is returned when an embedding's length differs from
// the index's fixed dimension. It is never auto-recovered; the operator must
// reset the index to change dimensions.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")
