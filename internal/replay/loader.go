package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Frame is one recorded snapshot payload.
type Frame struct {
	Tick    uint64
	Payload []byte
}

func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func LoadEvents(dir string) ([]Event, error) {
	f, err := os.Open(filepath.Join(dir, EventsName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(snappy.NewReader(f))
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

func LoadFrames(dir string) ([]Frame, error) {
	f, err := os.Open(filepath.Join(dir, FramesName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var frames []Frame
	var header [12]byte
	for {
		if _, err := io.ReadFull(dec, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return frames, fmt.Errorf("frame %d header: %w", len(frames), err)
		}
		payload := make([]byte, binary.BigEndian.Uint32(header[8:]))
		if _, err := io.ReadFull(dec, payload); err != nil {
			return frames, fmt.Errorf("frame %d payload: %w", len(frames), err)
		}
		frames = append(frames, Frame{Tick: binary.BigEndian.Uint64(header[:8]), Payload: payload})
	}
}
