//go:build !windows

package window

import "context"

// SystemLister is only available on Windows.
func SystemLister() Lister {
	return func(context.Context, string) ([]Candidate, error) {
		return nil, ErrUnsupported
	}
}
