// Package detector wraps an object-detection backend behind an explicit load
// step. A backend that fails to load leaves the service in an unavailable
// state that every Detect call reports.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrUnavailable = errors.New("detector unavailable")

// Raw is one detection as reported by a backend. Confidence is in [0, 1].
type Raw struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Raw, error)
}

// Loader builds a Detector. It is called once by NewService.
type Loader func() (Detector, error)

type Service struct {
	det     Detector
	loadErr error
}

func NewService(load Loader) *Service {
	det, err := load()
	if err == nil && det == nil {
		err = errors.New("no detector configured")
	}
	if err != nil {
		return &Service{loadErr: err}
	}
	return &Service{det: det}
}

// LoadErr returns the error the loader failed with, or nil.
func (s *Service) LoadErr() error {
	return s.loadErr
}

func (s *Service) Detect(ctx context.Context, image []byte) ([]Raw, error) {
	if s.loadErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, s.loadErr)
	}
	return s.det.Detect(ctx, image)
}

// Close releases the backend when it holds native resources.
func (s *Service) Close() error {
	if c, ok := s.det.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
