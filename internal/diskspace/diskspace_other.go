//go:build !unix && !windows

package diskspace

import "errors"

// Available is not supported on this platform.
func Available(dir string) (int64, error) {
	return 0, errors.New("free space lookup not supported")
}
