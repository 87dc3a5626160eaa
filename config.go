package tbdr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/tbdr/cmdstream"
)

// DebugFlags toggles driver debugging behavior.
type DebugFlags uint32

// Debug flags, as accepted by ParseDebug and the TBDR_DEBUG variable.
const (
	// DebugFlush flushes the batch after every draw.
	DebugFlush DebugFlags = 1 << iota
	// DebugNoBypass disables the system-memory bypass of the executor.
	DebugNoBypass
	// DebugNoGmem forces system-memory rendering for every batch.
	DebugNoGmem
	// DebugMsgs logs every draw and clear at debug level.
	DebugMsgs
)

var debugNames = []struct {
	name string
	flag DebugFlags
}{
	{"flush", DebugFlush},
	{"nobin", DebugNoBypass},
	{"nogmem", DebugNoGmem},
	{"msgs", DebugMsgs},
}

// ParseDebug parses a comma separated flag list such as "flush,msgs".
// Unknown names yield ErrUnknownDebugFlag along with the flags recognized.
func ParseDebug(s string) (DebugFlags, error) {
	var flags DebugFlags
	var unknown []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		found := false
		for _, d := range debugNames {
			if d.name == f {
				flags |= d.flag
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return flags, fmt.Errorf("%w: %s", ErrUnknownDebugFlag, strings.Join(unknown, ","))
	}
	return flags, nil
}

// String returns the flags in ParseDebug syntax.
func (f DebugFlags) String() string {
	var names []string
	for _, d := range debugNames {
		if f&d.flag != 0 {
			names = append(names, d.name)
		}
	}
	return strings.Join(names, ",")
}

// DebugEnv names the environment variable read by NewDevice.
const DebugEnv = "TBDR_DEBUG"

// Default configuration values.
const (
	DefaultStreamCapacity = 0x10000
	DefaultFlushThreshold = 0x1000
	DefaultGmemSize       = 256 << 10
	DefaultBinAlignW      = 32
	DefaultBinAlignH      = 16
	DefaultBypassDraws    = 5
)

// MaxVertexElements is the largest number of attributes a vertex state
// may hold.
const MaxVertexElements = 16

// Words, header included, of the largest packets a single Draw or Clear
// appends to one stream.
const (
	maxScissorWords = 1 + 2
	maxFetchWords   = 1 + 2*MaxVertexElements
	maxDrawWords    = 1 + 10
	maxClearWords   = MaxColorTargets*(1+9) + 1 + 6
)

// MinFlushThreshold is the smallest valid FlushThreshold. It covers the
// largest Draw record, a scissor, a full vertex fetch and an indexed draw,
// and a Clear of every buffer, so the record following a CheckSize always
// fits.
const MinFlushThreshold = max(maxScissorWords+maxFetchWords+maxDrawWords, maxClearWords)

// Config holds device-wide settings.
type Config struct {
	// StreamCapacity is the fixed size, in words, of every command stream.
	StreamCapacity int

	// FlushThreshold is the minimum free space, in words, the draw and
	// gmem streams keep. A batch is flushed as soon as less remains. It is
	// at least MinFlushThreshold.
	FlushThreshold int

	// GmemSize is the tile memory size in bytes.
	GmemSize int

	// BinAlignW and BinAlignH are the bin size granularity in pixels.
	BinAlignW int
	BinAlignH int

	// BypassDraws is the largest draw count rendered directly to system
	// memory when no tile memory reason is set. Zero disables the bypass.
	BypassDraws int

	Debug DebugFlags

	// StreamAllocator creates the batch command streams. Nil selects a
	// cmdstream.Pool of StreamCapacity.
	StreamAllocator cmdstream.Allocator
}

// DefaultConfig returns the default device configuration.
func DefaultConfig() Config {
	return Config{
		StreamCapacity: DefaultStreamCapacity,
		FlushThreshold: DefaultFlushThreshold,
		GmemSize:       DefaultGmemSize,
		BinAlignW:      DefaultBinAlignW,
		BinAlignH:      DefaultBinAlignH,
		BypassDraws:    DefaultBypassDraws,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.StreamCapacity <= 0:
		return fmt.Errorf("%w: stream capacity %d", ErrInvalidConfig, c.StreamCapacity)
	case c.FlushThreshold < MinFlushThreshold || c.FlushThreshold >= c.StreamCapacity:
		return fmt.Errorf("%w: flush threshold %d outside [%d,%d)",
			ErrInvalidConfig, c.FlushThreshold, MinFlushThreshold, c.StreamCapacity)
	case c.GmemSize <= 0:
		return fmt.Errorf("%w: gmem size %d", ErrInvalidConfig, c.GmemSize)
	case c.BinAlignW <= 0 || c.BinAlignH <= 0:
		return fmt.Errorf("%w: bin alignment %dx%d", ErrInvalidConfig, c.BinAlignW, c.BinAlignH)
	case c.BypassDraws < 0:
		return fmt.Errorf("%w: bypass draws %d", ErrInvalidConfig, c.BypassDraws)
	}
	return nil
}

// Option configures a Device.
type Option func(*Config)

// WithConfig replaces the whole configuration, typically one returned by
// LoadConfig.
func WithConfig(c Config) Option {
	return func(dst *Config) {
		*dst = c
	}
}

// WithStreamCapacity sets the command stream size in words.
func WithStreamCapacity(words int) Option {
	return func(c *Config) {
		c.StreamCapacity = words
	}
}

// WithFlushThreshold sets the stream headroom that triggers a flush.
func WithFlushThreshold(words int) Option {
	return func(c *Config) {
		c.FlushThreshold = words
	}
}

// WithGmemSize sets the tile memory size in bytes.
func WithGmemSize(bytes int) Option {
	return func(c *Config) {
		c.GmemSize = bytes
	}
}

// WithDebug enables debug flags in addition to those already set.
func WithDebug(flags DebugFlags) Option {
	return func(c *Config) {
		c.Debug |= flags
	}
}

// WithStreamAllocator sets the command stream allocator.
func WithStreamAllocator(a cmdstream.Allocator) Option {
	return func(c *Config) {
		c.StreamAllocator = a
	}
}

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	StreamCapacity *int    `toml:"stream_capacity" yaml:"stream_capacity"`
	FlushThreshold *int    `toml:"flush_threshold" yaml:"flush_threshold"`
	GmemSize       *int    `toml:"gmem_size" yaml:"gmem_size"`
	BinAlignW      *int    `toml:"bin_align_w" yaml:"bin_align_w"`
	BinAlignH      *int    `toml:"bin_align_h" yaml:"bin_align_h"`
	BypassDraws    *int    `toml:"bypass_draws" yaml:"bypass_draws"`
	Debug          *string `toml:"debug" yaml:"debug"`
}

// LoadConfig reads a configuration file on top of DefaultConfig. The file
// type is chosen by extension: .toml, .yaml or .yml. Keys left out keep
// their default.
//
// Example config.toml:
//
//	stream_capacity = 65536
//	flush_threshold = 4096
//	debug = "flush,msgs"
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("tbdr: read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrConfigFormat, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("tbdr: parse config %s: %w", path, err)
	}

	setInt(&cfg.StreamCapacity, fc.StreamCapacity)
	setInt(&cfg.FlushThreshold, fc.FlushThreshold)
	setInt(&cfg.GmemSize, fc.GmemSize)
	setInt(&cfg.BinAlignW, fc.BinAlignW)
	setInt(&cfg.BinAlignH, fc.BinAlignH)
	setInt(&cfg.BypassDraws, fc.BypassDraws)
	if fc.Debug != nil {
		flags, err := ParseDebug(*fc.Debug)
		if err != nil {
			return cfg, fmt.Errorf("tbdr: config %s: %w", path, err)
		}
		cfg.Debug = flags
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
