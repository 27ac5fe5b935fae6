package server

import "github.com/pkg/errors"

// errMaxContentSizeTooSmall reports the spec.md §3 invariant violation:
// the server does not bind below the minimum chunk size.
func errMaxContentSizeTooSmall(got int) error {
	return errors.Errorf("maxContentSize must be >= %d, got %d", minContentSize, got)
}
