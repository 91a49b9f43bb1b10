package search

import "errors"

// ErrNoRoute is returned by any kernel when source and target are not
// connected (or not connected within the restrictions honored).
var ErrNoRoute = errors.New("search: no route between source and target")
