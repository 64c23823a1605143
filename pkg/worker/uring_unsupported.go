//go:build !linux

package worker

import (
	"fmt"
)

func newUringBackend() (ReadBackend, error) {
	return nil, fmt.Errorf("uring engine is only supported on Linux")
}
