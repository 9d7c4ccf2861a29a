//go:build !unix

package export

import "errors"

func freeBytes(string) (uint64, error) {
	return 0, errors.New("free-space probe unsupported on this platform")
}
