//go:build !headless

package main

import (
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

// previewSample plays s on the default audio device and blocks until done.
func previewSample(s *RenderedSample) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return errors.Wrap(err, "opening audio device")
	}
	<-ready

	player := ctx.NewPlayer(newPCMReader(s))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return errors.WithStack(player.Close())
}
