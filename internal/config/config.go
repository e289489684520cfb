package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"netpong/internal/netwrk"
	"netpong/internal/pong"
	"netpong/internal/server"
)

const envPrefix = "PONG_"

type Configuration struct {
	Port            int      `json:"port"`
	LogLevel        int      `json:"logLevel"`
	TickRate        float64  `json:"tickRate"`
	MaxPayloadBytes int      `json:"maxPayloadBytes"`
	OutboundQueue   int      `json:"outboundQueue"`
	WriteTimeout    Duration `json:"writeTimeout"`
	PayloadCodec    string   `json:"payloadCodec"`
	ReplayDir       string   `json:"replayDir"`
	SpectatorAddr   string   `json:"spectatorAddr"`
}

// Duration reads either a Go duration string ("5s") or a number of milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %w", err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func Default() Configuration {
	return Configuration{
		Port:            7777,
		LogLevel:        0,
		TickRate:        pong.DefaultTickRate,
		MaxPayloadBytes: netwrk.DefaultMaxPayload,
		OutboundQueue:   netwrk.DefaultQueueSize,
		WriteTimeout:    Duration(netwrk.DefaultWriteTimeout),
		PayloadCodec:    "json",
	}
}

// Load starts from Default, overlays the JSON file at path when it exists and
// then PONG_* environment variables. A missing file is not an error; a file or
// variable that cannot be parsed is.
func Load(path string) (Configuration, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Configuration) applyEnv(lookup func(string) (string, bool)) error {
	var problems []string
	intVar := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s: %v", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	strVar := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	intVar("PORT", &c.Port)
	intVar("LOG_LEVEL", &c.LogLevel)
	intVar("MAX_PAYLOAD_BYTES", &c.MaxPayloadBytes)
	intVar("OUTBOUND_QUEUE", &c.OutboundQueue)
	strVar("PAYLOAD_CODEC", &c.PayloadCodec)
	strVar("REPLAY_DIR", &c.ReplayDir)
	strVar("SPECTATOR_ADDR", &c.SpectatorAddr)

	if v, ok := lookup(envPrefix + "TICK_RATE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sTICK_RATE: %v", envPrefix, err))
		} else {
			c.TickRate = f
		}
	}
	if v, ok := lookup(envPrefix + "WRITE_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sWRITE_TIMEOUT: %v", envPrefix, err))
		} else {
			c.WriteTimeout = Duration(d)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Configuration) Validate() error {
	var problems []string
	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.TickRate <= 0 {
		problems = append(problems, "tickRate must be positive")
	}
	if c.MaxPayloadBytes <= 0 {
		problems = append(problems, "maxPayloadBytes must be positive")
	}
	if c.OutboundQueue <= 0 {
		problems = append(problems, "outboundQueue must be positive")
	}
	if c.WriteTimeout <= 0 {
		problems = append(problems, "writeTimeout must be positive")
	}
	if _, err := netwrk.CodecByName(c.PayloadCodec); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ServerOptions maps the configuration onto server options. Recorder and
// spectator feed are wired by the caller.
func (c Configuration) ServerOptions() (server.Options, error) {
	codec, err := netwrk.CodecByName(c.PayloadCodec)
	if err != nil {
		return server.Options{}, err
	}
	return server.Options{
		Port:     c.Port,
		TickRate: c.TickRate,
		Session: netwrk.SessionConfig{
			Codec:        codec,
			QueueSize:    c.OutboundQueue,
			WriteTimeout: time.Duration(c.WriteTimeout),
			MaxPayload:   c.MaxPayloadBytes,
		},
	}, nil
}
