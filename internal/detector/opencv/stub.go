//go:build !gocv

package opencv

import (
	"errors"

	"github.com/vbonduro/sintaxia/internal/detector"
)

var errNotCompiled = errors.New("opencv support not compiled in (build with -tags gocv)")

func Load(cfg Config) (detector.Detector, error) {
	return nil, errNotCompiled
}
