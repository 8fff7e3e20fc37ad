package cache

import "errors"

// ErrInvalidResultType indicates the cache returned a value whose dynamic
// type does not match the type requested by the caller. This can only happen
// when two call sites share a key but expect different types.
var ErrInvalidResultType = errors.New("cache: result type does not match requested type")
