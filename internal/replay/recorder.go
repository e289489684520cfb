package replay

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	ManifestName = "manifest.json"
	EventsName   = "events.jsonl.sz"
	FramesName   = "frames.bin.zst"
)

// Manifest describes a recording directory so tooling can find its parts.
type Manifest struct {
	Version    int     `json:"version"`
	MatchID    string  `json:"match_id"`
	CreatedAt  string  `json:"created_at"`
	Codec      string  `json:"codec"`
	TickRate   float64 `json:"tick_rate"`
	EventsPath string  `json:"events_path"`
	FramesPath string  `json:"frames_path"`
}

// Event is one line of the snappy compressed event log.
type Event struct {
	At   time.Time       `json:"at"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Recorder writes every snapshot payload to a zstd frame log and seat, phase and
// connection events to a snappy JSON lines log.
type Recorder struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	eventFile *os.File
	events    *snappy.Writer
	frameFile *os.File
	frames    *zstd.Encoder
	closed    bool
}

// NewRecorder creates <root>/<match id>-<timestamp>/ and opens both logs.
func NewRecorder(root, codec string, tickRate float64, clock func() time.Time) (*Recorder, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, errors.New("replay root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	matchID := uuid.New()
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", matchID.String()[:8], created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    1,
		MatchID:    matchID.String(),
		CreatedAt:  created.Format(time.RFC3339Nano),
		Codec:      codec,
		TickRate:   tickRate,
		EventsPath: EventsName,
		FramesPath: FramesName,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return nil, Manifest{}, err
	}

	eventFile, err := os.Create(filepath.Join(dir, EventsName))
	if err != nil {
		return nil, Manifest{}, err
	}
	frameFile, err := os.Create(filepath.Join(dir, FramesName))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	frames, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	return &Recorder{
		dir:       dir,
		now:       clock,
		eventFile: eventFile,
		events:    snappy.NewBufferedWriter(eventFile),
		frameFile: frameFile,
		frames:    frames,
	}, manifest, nil
}

func (r *Recorder) Directory() string { return r.dir }

// RecordEvent appends one JSON line. data must marshal to JSON.
func (r *Recorder) RecordEvent(kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	line, err := json.Marshal(Event{At: r.now().UTC(), Kind: kind, Data: raw})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	if _, err := r.events.Write(append(line, '\n')); err != nil {
		return err
	}
	// Flushed per event so the log can be tailed during a match.
	return r.events.Flush()
}

// RecordFrame appends tick (8 bytes), payload length (4 bytes) and the payload.
func (r *Recorder) RecordFrame(tick uint64, payload []byte) error {
	var header [12]byte
	binary.BigEndian.PutUint64(header[:8], tick)
	binary.BigEndian.PutUint32(header[8:], uint32(len(payload)))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	if _, err := r.frames.Write(header[:]); err != nil {
		return err
	}
	_, err := r.frames.Write(payload)
	return err
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(
		r.events.Close(),
		r.eventFile.Close(),
		r.frames.Close(),
		r.frameFile.Close(),
	)
}
