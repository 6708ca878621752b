// Package config loads the YAML configuration of a board or a simulated
// chain.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/luguan/synthchain"
	"github.com/luguan/synthchain/board"
	"github.com/luguan/synthchain/bus"
	"github.com/luguan/synthchain/discovery"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		Board     Board               `yaml:"board"`
		Bus       Bus                 `yaml:"bus"`
		Discovery Discovery           `yaml:"discovery"`
		Audio     Audio               `yaml:"audio"`
		Status    Status              `yaml:"status"`
		Settings  synthchain.Settings `yaml:"settings"`
	}

	Board struct {
		ID uint8 `yaml:"id"`
		// Position -1 runs discovery over the handshake lines.
		Position   int           `yaml:"position"`
		ScanPeriod time.Duration `yaml:"scan_period"`
	}

	Bus struct {
		Transport string   `yaml:"transport"` // "hub" or "rpc"
		Listen    string   `yaml:"listen"`
		Peers     []string `yaml:"peers"`
		OutQueue  int      `yaml:"out_queue"`
		InQueue   int      `yaml:"in_queue"`
		TxSlots   int64    `yaml:"tx_slots"`
	}

	Discovery struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		Pulse        time.Duration `yaml:"pulse"`
		Settle       time.Duration `yaml:"settle"`
		MaxPolls     int           `yaml:"max_polls"`
	}

	Audio struct {
		Output string  `yaml:"output"` // "oto", "wav" or "none"
		File   string  `yaml:"file"`
		Gain   float32 `yaml:"gain"`
	}

	Status struct {
		Template string        `yaml:"template"`
		Interval time.Duration `yaml:"interval"` // 0 disables the status output
	}
)

const (
	TransportHub = "hub"
	TransportRPC = "rpc"

	OutputOto  = "oto"
	OutputWAV  = "wav"
	OutputNone = "none"
)

var ErrInvalid = errors.New("invalid configuration")

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	d := discovery.DefaultConfig()
	return Config{
		Board: Board{Position: -1, ScanPeriod: board.DefaultScanPeriod},
		Bus: Bus{
			Transport: TransportHub,
			OutQueue:  bus.DefaultQueueLen,
			InQueue:   bus.DefaultQueueLen,
			TxSlots:   bus.DefaultTxSlots,
		},
		Discovery: Discovery{
			PollInterval: d.PollInterval,
			Pulse:        d.Pulse,
			Settle:       d.Settle,
			MaxPolls:     d.MaxPolls,
		},
		Audio:    Audio{Output: OutputOto, Gain: 0.5},
		Settings: synthchain.DefaultSettings(),
	}
}

// Load reads the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot open config: %w", err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %v: %w", path, err)
	}
	return c, nil
}

// Read decodes a configuration on top of Default, validates it and clamps
// the settings into their ranges. Unknown fields are an error.
func Read(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.Settings.Clamp()
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Board.Position < -1 || c.Board.Position >= synthchain.MaxBoards:
		return fmt.Errorf("%w: position %d outside -1..%d", ErrInvalid, c.Board.Position, synthchain.MaxBoards-1)
	case c.Board.ScanPeriod <= 0:
		return fmt.Errorf("%w: scan_period must be positive", ErrInvalid)
	case c.Bus.OutQueue < 0 || c.Bus.InQueue < 0 || c.Bus.TxSlots < 0:
		return fmt.Errorf("%w: negative bus queue size", ErrInvalid)
	case c.Discovery.PollInterval <= 0 || c.Discovery.Pulse < 0 || c.Discovery.Settle < 0:
		return fmt.Errorf("%w: discovery durations", ErrInvalid)
	case c.Discovery.MaxPolls < 0:
		return fmt.Errorf("%w: max_polls must not be negative", ErrInvalid)
	case c.Audio.Gain < 0 || c.Audio.Gain > 1:
		return fmt.Errorf("%w: gain %v outside 0..1", ErrInvalid, c.Audio.Gain)
	case c.Status.Interval < 0:
		return fmt.Errorf("%w: status interval must not be negative", ErrInvalid)
	}
	switch c.Bus.Transport {
	case TransportHub:
	case TransportRPC:
		if c.Bus.Listen == "" {
			return fmt.Errorf("%w: rpc transport needs a listen address", ErrInvalid)
		}
		if c.Board.Position < 0 {
			return fmt.Errorf("%w: rpc transport has no handshake lines, set a position", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Bus.Transport)
	}
	switch c.Audio.Output {
	case OutputOto, OutputNone:
	case OutputWAV:
		if c.Audio.File == "" {
			return fmt.Errorf("%w: wav output needs a file", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown audio output %q", ErrInvalid, c.Audio.Output)
	}
	return nil
}

// BoardConfig returns the board configuration for board id.
func (c *Config) BoardConfig(id uint8, logger *slog.Logger) board.Config {
	return board.Config{
		BoardID:    id,
		ScanPeriod: c.Board.ScanPeriod,
		Discover:   c.Board.Position < 0,
		Position:   max(c.Board.Position, 0),
		Discovery: discovery.Config{
			PollInterval: c.Discovery.PollInterval,
			Pulse:        c.Discovery.Pulse,
			Settle:       c.Discovery.Settle,
			MaxPolls:     c.Discovery.MaxPolls,
		},
		Logger: logger,
	}
}

func (c *Config) RouterConfig(logger *slog.Logger) bus.Config {
	return bus.Config{
		OutQueueLen: c.Bus.OutQueue,
		InQueueLen:  c.Bus.InQueue,
		TxSlots:     c.Bus.TxSlots,
		Logger:      logger,
	}
}
