package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Load reads the bytes behind a ringtone identifier. Identifiers are data
// URLs ("data:audio/flac;base64,..."), file:// URLs or plain paths.
func Load(resource string) ([]byte, error) {
	switch {
	case resource == "":
		return nil, errors.New("audio: empty resource")
	case strings.HasPrefix(resource, "data:"):
		data, _, err := ParseDataURL(resource)
		return data, err
	case strings.HasPrefix(resource, "file://"):
		u, err := url.Parse(resource)
		if err != nil {
			return nil, fmt.Errorf("audio: resource url: %w", err)
		}
		return os.ReadFile(u.Path)
	}
	return os.ReadFile(resource)
}

// ParseDataURL decodes a base64 data URL and returns the payload and its media type.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", errors.New("audio: not a data url")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("audio: data url without payload")
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.New("audio: data url must be base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("audio: data url payload: %w", err)
	}
	return data, mediaType, nil
}

// DataURL converts an audio file into the persistent form stored in config.
// The file is decoded first so an unplayable file is rejected here rather
// than at ring time; the stored payload is re-encoded as FLAC.
func DataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	pcm, err := Decode(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	encoded, err := EncodeFLAC(pcm)
	if err != nil {
		return "", err
	}
	return "data:audio/flac;base64," + base64.StdEncoding.EncodeToString(encoded), nil
}

// Describe returns a short human label for a resource identifier.
func Describe(resource string) string {
	switch {
	case resource == "":
		return "default tone"
	case strings.HasPrefix(resource, "data:"):
		mediaType, _, _ := strings.Cut(strings.TrimPrefix(resource, "data:"), ";")
		return fmt.Sprintf("embedded %s (%d KB)", mediaType, len(resource)*3/4/1024)
	}
	return filepath.Base(strings.TrimPrefix(resource, "file://"))
}
