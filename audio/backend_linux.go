//go:build linux

package audio

import (
	"fmt"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// drainSlack covers the server-side buffer still playing after the reader
// has handed over its last sample.
const drainSlack = 250 * time.Millisecond

type pulseBackend struct {
	client *pulse.Client
	live   liveSet
}

func NewBackend() (Backend, error) {
	c, err := pulse.NewClient(
		pulse.ClientApplicationName("ringer"),
		pulse.ClientApplicationIconName("alarm-symbolic"),
	)
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: c}, nil
}

func (b *pulseBackend) NewStream(pcm PCM, loop bool) (Stream, error) {
	if len(pcm.Samples) == 0 {
		return nil, fmt.Errorf("pulse playback: empty pcm")
	}
	s := &pulseStream{backend: b, pcm: pcm, loop: loop}
	s.open()

	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		return s.read(buf)
	})

	layout := pulse.PlaybackMono
	if pcm.Channels == 2 {
		layout = pulse.PlaybackStereo
	}
	name := "ringer alert tone"
	if loop {
		name = "ringer ringtone"
	}
	stream, err := b.client.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName(name),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			vols := make(proto.ChannelVolumes, pcm.Channels)
			for i := range vols {
				vols[i] = uint32(proto.VolumeNorm)
			}
			p.ChannelVolumes = vols
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pulse playback: %w", err)
	}
	s.stream = stream
	b.live.add(s)
	return s, nil
}

func (b *pulseBackend) Sweep() int {
	return b.live.sweep()
}

func (b *pulseBackend) Close() {
	b.live.sweep()
	b.client.Close()
}

type pulseStream struct {
	lifecycle
	backend *pulseBackend
	stream  *pulse.PlaybackStream
	pcm     PCM
	loop    bool
	pos     int // only touched by the pulse reader
	timer   *time.Timer
}

func (s *pulseStream) read(buf []int16) (int, error) {
	samples := s.pcm.Samples
	n := 0
	for n < len(buf) {
		if s.pos >= len(samples) {
			if !s.loop {
				break
			}
			s.pos = 0
		}
		c := copy(buf[n:], samples[s.pos:])
		s.pos += c
		n += c
	}
	if n == 0 {
		return 0, pulse.EndOfData
	}
	return n, nil
}

func (s *pulseStream) Start() error {
	if err := s.begin(); err != nil {
		return err
	}
	s.stream.Start()
	if err := s.stream.Error(); err != nil {
		s.Stop()
		return fmt.Errorf("pulse start: %w", err)
	}
	if !s.loop {
		s.mu.Lock()
		s.timer = time.AfterFunc(s.pcm.Duration()+drainSlack, func() { s.Stop() })
		s.mu.Unlock()
	}
	return nil
}

func (s *pulseStream) Stop() error {
	if !s.end() {
		return nil
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if s.isStarted() {
		s.stream.Stop()
	}
	s.stream.Close()
	s.backend.live.remove(s)
	return nil
}
