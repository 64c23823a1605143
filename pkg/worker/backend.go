package worker

import (
	"fmt"
	"os"

	"github.com/nmayer/fsbench/pkg/config"
)

// ReadBackend reads a file's full contents and reports the byte count.
// Backends only serve read mode; readwrite needs the data itself and
// always goes through the plain sync path.
type ReadBackend interface {
	ReadFile(path string) (int64, error)
}

// NewBackend selects a read backend by engine name.
func NewBackend(engine string) (ReadBackend, error) {
	switch engine {
	case config.EngineSync:
		return syncBackend{}, nil
	case config.EngineUring:
		return newUringBackend()
	}
	return nil, fmt.Errorf("unrecognized engine %q", engine)
}

type syncBackend struct{}

func (syncBackend) ReadFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
