// Package config loads and validates ghostglove settings.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/stereo"
	"github.com/ayusman/ghostglove/internal/vision"
)

// ErrInvalid is wrapped by every validation failure. An invalid
// configuration must stop the pipeline from starting.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete, startup-fixed configuration.
type Config struct {
	Camera  CameraConfig  `toml:"camera"`
	Stereo  StereoConfig  `toml:"stereo"`
	Blob    BlobConfig    `toml:"blob"`
	Matcher MatcherConfig `toml:"matcher"`
	Delta   DeltaConfig   `toml:"delta"`
	Network NetworkConfig `toml:"network"`
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Plugins PluginsConfig `toml:"plugins"`
	Log     LogConfig     `toml:"log"`
}

// CameraConfig configures the two capture devices.
type CameraConfig struct {
	Left     int     `toml:"left"`
	Right    int     `toml:"right"`
	Width    int     `toml:"width"`
	Height   int     `toml:"height"`
	FPS      int     `toml:"fps"`
	Exposure float64 `toml:"exposure"` // microseconds; 0 leaves auto exposure on
	Gain     float64 `toml:"gain"`
	Flip     bool    `toml:"flip"` // rotate both frames 180 degrees
}

// StereoConfig is the pinhole geometry of the rig.
type StereoConfig struct {
	Baseline float64 `toml:"baseline"` // mm
	Focal    float64 `toml:"focal"`    // pixels
	Cx       float64 `toml:"cx"`       // pixels
	Cy       float64 `toml:"cy"`       // pixels
}

// BlobConfig configures blob extraction.
type BlobConfig struct {
	Threshold int `toml:"threshold"`
	MinArea   int `toml:"min_area"`
	Channel   int `toml:"channel"`
	MaxBlobs  int `toml:"max_blobs"`
}

// MatcherConfig selects the matching strategy.
type MatcherConfig struct {
	Strategy   string  `toml:"strategy"`
	HitRadius  float64 `toml:"hit_radius"`
	RecordSlot int     `toml:"record_slot"`
}

// DeltaConfig configures home-offset matching. Keys is indexed by slot
// number as a string, then by direction name.
type DeltaConfig struct {
	Up   float64                      `toml:"up"`
	Down float64                      `toml:"down"`
	Side float64                      `toml:"side"`
	Keys map[string]map[string]string `toml:"keys"`
}

// NetworkConfig is where emitted keys are sent. Empty Peer disables sending.
type NetworkConfig struct {
	Peer        string `toml:"peer"`
	DialTimeout string `toml:"dial_timeout"`
}

// ServerConfig configures the monitoring HTTP server. Empty Addr disables it.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"` // optional monitor page served at /
}

// StoreConfig configures the keystroke history database. Empty Path disables it.
type StoreConfig struct {
	Path string `toml:"path"`
}

// PluginsConfig configures key plugins. Empty Dir disables them.
type PluginsConfig struct {
	Dir     string `toml:"dir"`
	Timeout string `toml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration of the reference rig: two 1280x720
// cameras 45.4mm apart with exposure locked for an IR LED.
func Default() Config {
	rig := stereo.DefaultRig()
	blob := vision.DefaultConfig()
	match := keymap.DefaultConfig()

	return Config{
		Camera: CameraConfig{
			Left:     0,
			Right:    1,
			Width:    1280,
			Height:   720,
			FPS:      30,
			Exposure: 2000,
			Gain:     1.0,
			Flip:     true,
		},
		Stereo: StereoConfig{
			Baseline: rig.Baseline,
			Focal:    rig.Focal,
			Cx:       rig.Cx,
			Cy:       rig.Cy,
		},
		Blob: BlobConfig{
			Threshold: blob.Threshold,
			MinArea:   blob.MinArea,
			Channel:   blob.Channel,
			MaxBlobs:  blob.MaxBlobs,
		},
		Matcher: MatcherConfig{
			Strategy:   string(match.Strategy),
			HitRadius:  match.HitRadius,
			RecordSlot: match.RecordSlot,
		},
		Delta: fromKeymapDelta(match.Delta),
		Network: NetworkConfig{
			DialTimeout: "3s",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: DefaultDBPath(),
		},
		Plugins: PluginsConfig{
			Dir:     DefaultPluginDir(),
			Timeout: "2s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks every startup-fixed value. All failures wrap ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Stereo.Baseline <= 0 {
		fail("stereo.baseline must be positive, got %g", c.Stereo.Baseline)
	}
	if c.Stereo.Focal <= 0 {
		fail("stereo.focal must be positive, got %g", c.Stereo.Focal)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		fail("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.Left == c.Camera.Right {
		fail("camera.left and camera.right must differ, both are %d", c.Camera.Left)
	}
	if c.Blob.Threshold < 0 || c.Blob.Threshold > 255 {
		fail("blob.threshold must be in [0,255], got %d", c.Blob.Threshold)
	}
	if c.Blob.MinArea < 0 {
		fail("blob.min_area must not be negative, got %d", c.Blob.MinArea)
	}
	if c.Blob.MaxBlobs < 1 || c.Blob.MaxBlobs > vision.MaxSlots {
		fail("blob.max_blobs must be in [1,%d], got %d", vision.MaxSlots, c.Blob.MaxBlobs)
	}
	if c.Blob.Channel < -1 {
		fail("blob.channel must be -1 (grayscale) or a channel index, got %d", c.Blob.Channel)
	}

	switch keymap.Strategy(c.Matcher.Strategy) {
	case keymap.StrategyNearest, keymap.StrategyDelta:
	default:
		fail("matcher.strategy must be %q or %q, got %q", keymap.StrategyNearest, keymap.StrategyDelta, c.Matcher.Strategy)
	}
	if c.Matcher.HitRadius <= 0 {
		fail("matcher.hit_radius must be positive, got %g", c.Matcher.HitRadius)
	}
	if c.Matcher.RecordSlot < 0 || c.Matcher.RecordSlot >= vision.MaxSlots {
		fail("matcher.record_slot must be in [0,%d], got %d", vision.MaxSlots-1, c.Matcher.RecordSlot)
	}

	if c.Delta.Up <= 0 {
		fail("delta.up must be positive, got %g", c.Delta.Up)
	}
	if c.Delta.Down >= 0 {
		fail("delta.down must be negative, got %g", c.Delta.Down)
	}
	if c.Delta.Side <= 0 {
		fail("delta.side must be positive, got %g", c.Delta.Side)
	}
	if _, err := c.keyTable(); err != nil {
		errs = append(errs, err)
	}

	if c.Network.DialTimeout != "" {
		if d, err := time.ParseDuration(c.Network.DialTimeout); err != nil || d <= 0 {
			fail("network.dial_timeout must be a positive duration, got %q", c.Network.DialTimeout)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		fail("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Plugins.Timeout != "" {
		if d, err := time.ParseDuration(c.Plugins.Timeout); err != nil || d <= 0 {
			fail("plugins.timeout must be a positive duration, got %q", c.Plugins.Timeout)
		}
	}

	return errors.Join(errs...)
}

// Rig returns the stereo geometry.
func (c Config) Rig() stereo.Rig {
	return stereo.Rig{
		Baseline: c.Stereo.Baseline,
		Focal:    c.Stereo.Focal,
		Cx:       c.Stereo.Cx,
		Cy:       c.Stereo.Cy,
	}
}

// BlobExtraction returns the blob extractor settings.
func (c Config) BlobExtraction() vision.Config {
	return vision.Config{
		Threshold: c.Blob.Threshold,
		MinArea:   c.Blob.MinArea,
		Channel:   c.Blob.Channel,
		MaxBlobs:  c.Blob.MaxBlobs,
	}
}

// DialTimeout returns the peer connect timeout, or zero when unset.
func (c Config) DialTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Network.DialTimeout)
	return d
}

// PluginTimeout returns the per-run plugin timeout, or zero when unset.
func (c Config) PluginTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Plugins.Timeout)
	return d
}

// Keymap returns the matcher settings. Call Validate first.
func (c Config) Keymap() keymap.Config {
	keys, _ := c.keyTable()
	return keymap.Config{
		Strategy:   keymap.Strategy(c.Matcher.Strategy),
		HitRadius:  c.Matcher.HitRadius,
		RecordSlot: c.Matcher.RecordSlot,
		Delta: keymap.DeltaConfig{
			Up:   c.Delta.Up,
			Down: c.Delta.Down,
			Side: c.Delta.Side,
			Keys: keys,
		},
	}
}

// keyTable converts the string-keyed TOML table into a keymap.KeyTable.
func (c Config) keyTable() (keymap.KeyTable, error) {
	table := keymap.KeyTable{}
	for slotName, dirs := range c.Delta.Keys {
		slot, err := strconv.Atoi(slotName)
		if err != nil || slot < 0 || slot >= vision.MaxSlots {
			return nil, fmt.Errorf("%w: delta.keys slot %q must be 0..%d", ErrInvalid, slotName, vision.MaxSlots-1)
		}
		row := make(map[keymap.Direction]string, len(dirs))
		for name, label := range dirs {
			dir := keymap.Direction(name)
			if !keymap.ValidDirection(dir) {
				return nil, fmt.Errorf("%w: delta.keys.%s has unknown direction %q", ErrInvalid, slotName, name)
			}
			row[dir] = label
		}
		table[slot] = row
	}
	return table, nil
}

func fromKeymapDelta(d keymap.DeltaConfig) DeltaConfig {
	keys := make(map[string]map[string]string, len(d.Keys))
	for slot, dirs := range d.Keys {
		row := make(map[string]string, len(dirs))
		for dir, label := range dirs {
			row[string(dir)] = label
		}
		keys[strconv.Itoa(slot)] = row
	}
	return DeltaConfig{
		Up:   d.Up,
		Down: d.Down,
		Side: d.Side,
		Keys: keys,
	}
}
