//go:build headless

package main

import "github.com/pkg/errors"

func previewSample(s *RenderedSample) error {
	return errors.New("audio preview is not available in headless builds")
}
