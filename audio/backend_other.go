//go:build !linux

package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoBackend struct {
	ctx  *malgo.AllocatedContext
	live liveSet
}

func NewBackend() (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) NewStream(pcm PCM, loop bool) (Stream, error) {
	if len(pcm.Samples) == 0 {
		return nil, fmt.Errorf("malgo playback: empty pcm")
	}
	s := &malgoStream{backend: b, pcm: pcm, loop: loop, drained: make(chan struct{}, 1)}
	s.open()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(pcm.Channels)
	config.SampleRate = uint32(pcm.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: s.fill,
	}

	device, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo device: %w", err)
	}
	s.device = device
	b.live.add(s)
	return s, nil
}

func (b *malgoBackend) Sweep() int {
	return b.live.sweep()
}

func (b *malgoBackend) Close() {
	b.live.sweep()
	b.ctx.Uninit()
	b.ctx.Free()
}

type malgoStream struct {
	lifecycle
	backend *malgoBackend
	device  *malgo.Device
	pcm     PCM
	loop    bool
	pos     atomic.Uint32 // sample index, advanced from the device callback
	drained chan struct{}
}

func (s *malgoStream) fill(pOutput, _ []byte, frameCount uint32) {
	samples := s.pcm.Samples
	want := int(frameCount) * s.pcm.Channels
	pos := int(s.pos.Load())
	written := 0

	for written < want {
		if pos >= len(samples) {
			if !s.loop {
				break
			}
			pos = 0
		}
		v := samples[pos]
		pOutput[written*2] = byte(v)
		pOutput[written*2+1] = byte(v >> 8)
		pos++
		written++
	}
	s.pos.Store(uint32(pos))

	// Zero-fill remainder
	for i := written * 2; i < want*2; i++ {
		pOutput[i] = 0
	}

	if written < want {
		// device calls must not happen on the callback thread
		select {
		case s.drained <- struct{}{}:
		default:
		}
	}
}

func (s *malgoStream) Start() error {
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.device.Start(); err != nil {
		s.Stop()
		return fmt.Errorf("malgo start: %w", err)
	}
	if !s.loop {
		go func() {
			select {
			case <-s.drained:
				s.Stop()
			case <-s.Done():
			}
		}()
	}
	return nil
}

func (s *malgoStream) Stop() error {
	if !s.end() {
		return nil
	}
	if s.isStarted() {
		s.device.Stop()
	}
	s.device.Uninit()
	s.backend.live.remove(s)
	return nil
}
