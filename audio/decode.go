package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const flacBlockSize = 4096

// Decode turns a WAV or FLAC file into PCM. More than two channels are
// reduced to the first two.
func Decode(data []byte) (PCM, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return decodeWAV(data)
	case bytes.HasPrefix(data, []byte("fLaC")):
		return decodeFLAC(data)
	}
	return PCM{}, ErrUnsupportedFormat
}

func decodeWAV(data []byte) (PCM, error) {
	if len(data) < 12 || string(data[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("wav: missing WAVE header: %w", ErrUnsupportedFormat)
	}

	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		payload       []byte
		haveFmt       bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		body := pos + 8
		end := body + size
		if end > len(data) {
			end = len(data)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return PCM{}, errors.New("wav: short fmt chunk")
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			payload = data[body:end]
		}
		// chunks are word aligned
		pos = body + size + size%2
	}

	if !haveFmt || payload == nil {
		return PCM{}, errors.New("wav: missing fmt or data chunk")
	}
	if format != 1 {
		return PCM{}, fmt.Errorf("wav: encoding %d: %w", format, ErrUnsupportedFormat)
	}
	if channels < 1 || sampleRate <= 0 {
		return PCM{}, fmt.Errorf("wav: %d channels at %d Hz: %w", channels, sampleRate, ErrUnsupportedFormat)
	}

	var samples []int16
	switch bitsPerSample {
	case 16:
		samples = make([]int16, len(payload)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
		}
	case 8:
		samples = make([]int16, len(payload))
		for i, b := range payload {
			samples[i] = int16(int(b)-128) << 8
		}
	default:
		return PCM{}, fmt.Errorf("wav: %d-bit samples: %w", bitsPerSample, ErrUnsupportedFormat)
	}

	return downmix(PCM{Samples: samples, SampleRate: sampleRate, Channels: channels}), nil
}

func decodeFLAC(data []byte) (PCM, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	shift := int(info.BitsPerSample) - 16

	var samples []int16
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("flac frame: %w", err)
		}
		n := f.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				v := f.Subframes[c].Samples[i]
				if shift > 0 {
					v >>= shift
				} else if shift < 0 {
					v <<= -shift
				}
				samples = append(samples, int16(v))
			}
		}
	}

	if len(samples) == 0 {
		return PCM{}, errors.New("flac: no audio frames")
	}
	return downmix(PCM{Samples: samples, SampleRate: int(info.SampleRate), Channels: channels}), nil
}

func downmix(p PCM) PCM {
	if p.Channels <= 2 {
		return p
	}
	frames := p.Frames()
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		out[i*2] = p.Samples[i*p.Channels]
		out[i*2+1] = p.Samples[i*p.Channels+1]
	}
	return PCM{Samples: out, SampleRate: p.SampleRate, Channels: 2}
}

// EncodeFLAC compresses mono or stereo PCM into a FLAC file. Ringtones are
// stored this way so the persisted data URL stays small.
func EncodeFLAC(p PCM) ([]byte, error) {
	var mode frame.Channels
	switch p.Channels {
	case 1:
		mode = frame.ChannelsMono
	case 2:
		mode = frame.ChannelsLR
	default:
		return nil, fmt.Errorf("flac encode: %d channels: %w", p.Channels, ErrUnsupportedFormat)
	}

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(p.SampleRate),
		NChannels:     uint8(p.Channels),
		BitsPerSample: 16,
		NSamples:      uint64(p.Frames()),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	frames := p.Frames()
	for start := 0; start < frames; start += flacBlockSize {
		end := min(start+flacBlockSize, frames)
		subframes := make([]*frame.Subframe, p.Channels)
		for c := range subframes {
			samples := make([]int32, end-start)
			for i := range samples {
				samples[i] = int32(p.Samples[(start+i)*p.Channels+c])
			}
			subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  len(samples),
			}
		}
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(end - start),
				SampleRate:    uint32(p.SampleRate),
				Channels:      mode,
				BitsPerSample: 16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}
