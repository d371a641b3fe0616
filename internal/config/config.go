// Package config loads conceptmap settings from defaults, an optional YAML
// file, .env files, CONCEPTMAP_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/physics"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// EnvPrefix prefixes every environment override, e.g. CONCEPTMAP_SERVER_ADDR
const EnvPrefix = "CONCEPTMAP"

// DefaultFile is looked up in the working directory when no file is given
const DefaultFile = "conceptmap.yaml"

// Config is the full settings tree
type Config struct {
	Physics   physics.Config  `mapstructure:"physics" yaml:"physics"`
	Viewport  ViewportConfig  `mapstructure:"viewport" yaml:"viewport"`
	Animation AnimationConfig `mapstructure:"animation" yaml:"animation"`
	Tiers     TierConfig      `mapstructure:"tiers" yaml:"tiers"`
	Theme     render.Theme    `mapstructure:"theme" yaml:"theme"`
	Canvas    CanvasConfig    `mapstructure:"canvas" yaml:"canvas"`
	Content   ContentConfig   `mapstructure:"content" yaml:"content"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ViewportConfig holds the zoom bounds
type ViewportConfig struct {
	MinZoom float64 `mapstructure:"min_zoom" yaml:"min_zoom" validate:"gt=0"`
	MaxZoom float64 `mapstructure:"max_zoom" yaml:"max_zoom" validate:"gtefield=MinZoom"`
}

// AnimationConfig holds animation timings
type AnimationConfig struct {
	Fade           time.Duration `mapstructure:"fade" yaml:"fade" validate:"gte=0"`
	Focus          time.Duration `mapstructure:"focus" yaml:"focus" validate:"gte=0"`
	ResizeDebounce time.Duration `mapstructure:"resize_debounce" yaml:"resize_debounce" validate:"gte=0"`
}

// TierConfig holds per-difficulty appearance
type TierConfig struct {
	Beginner     graph.Tier `mapstructure:"beginner" yaml:"beginner"`
	Intermediate graph.Tier `mapstructure:"intermediate" yaml:"intermediate"`
	Advanced     graph.Tier `mapstructure:"advanced" yaml:"advanced"`
}

// Table converts to a graph.TierTable
func (t TierConfig) Table() graph.TierTable {
	return graph.TierTable{
		graph.Beginner:     t.Beginner,
		graph.Intermediate: t.Intermediate,
		graph.Advanced:     t.Advanced,
	}
}

// CanvasConfig is the canvas size for hosts without a window of their own
type CanvasConfig struct {
	Width  float64 `mapstructure:"width" yaml:"width" validate:"gt=0"`
	Height float64 `mapstructure:"height" yaml:"height" validate:"gt=0"`
}

// ContentConfig locates the concept files
type ContentConfig struct {
	Path  string `mapstructure:"path" yaml:"path" validate:"required"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// ServerConfig configures the live server
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
	FPS  int    `mapstructure:"fps" yaml:"fps" validate:"gt=0,lte=240"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in settings
func Default() *Config {
	opts := conceptmap.DefaultOptions()
	tiers := opts.Tiers
	return &Config{
		Physics: opts.Physics,
		Viewport: ViewportConfig{
			MinZoom: opts.MinZoom,
			MaxZoom: opts.MaxZoom,
		},
		Animation: AnimationConfig{
			Fade:           opts.FadeDuration,
			Focus:          opts.FocusDuration,
			ResizeDebounce: opts.ResizeDebounce,
		},
		Tiers: TierConfig{
			Beginner:     tiers[graph.Beginner],
			Intermediate: tiers[graph.Intermediate],
			Advanced:     tiers[graph.Advanced],
		},
		Theme: opts.Theme,
		Canvas: CanvasConfig{
			Width:  opts.Width,
			Height: opts.Height,
		},
		Content: ContentConfig{
			Path:  "content",
			Watch: false,
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
			FPS:  30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults registers every key so env overrides and Unmarshal see them
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("physics.repulsion", d.Physics.Repulsion)
	v.SetDefault("physics.attraction", d.Physics.Attraction)
	v.SetDefault("physics.damping", d.Physics.Damping)
	v.SetDefault("physics.max_velocity", d.Physics.MaxVelocity)
	v.SetDefault("physics.padding", d.Physics.Padding)
	v.SetDefault("physics.iterations", d.Physics.Iterations)

	v.SetDefault("viewport.min_zoom", d.Viewport.MinZoom)
	v.SetDefault("viewport.max_zoom", d.Viewport.MaxZoom)

	v.SetDefault("animation.fade", d.Animation.Fade)
	v.SetDefault("animation.focus", d.Animation.Focus)
	v.SetDefault("animation.resize_debounce", d.Animation.ResizeDebounce)

	for name, tier := range map[string]graph.Tier{
		"beginner":     d.Tiers.Beginner,
		"intermediate": d.Tiers.Intermediate,
		"advanced":     d.Tiers.Advanced,
	} {
		v.SetDefault("tiers."+name+".radius", tier.Radius)
		v.SetDefault("tiers."+name+".color", tier.Color)
	}

	v.SetDefault("theme.background", d.Theme.Background)
	v.SetDefault("theme.edge", d.Theme.Edge)
	v.SetDefault("theme.label", d.Theme.Label)
	v.SetDefault("theme.caption", d.Theme.Caption)
	v.SetDefault("theme.hover", d.Theme.Hover)
	v.SetDefault("theme.selected", d.Theme.Selected)
	v.SetDefault("theme.overlay", d.Theme.Overlay)

	v.SetDefault("canvas.width", d.Canvas.Width)
	v.SetDefault("canvas.height", d.Canvas.Height)

	v.SetDefault("content.path", d.Content.Path)
	v.SetDefault("content.watch", d.Content.Watch)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.fps", d.Server.FPS)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// FlagKeys maps command flag names to the config keys Load binds them to
var FlagKeys = map[string]string{
	"data":       "content.path",
	"watch":      "content.watch",
	"addr":       "server.addr",
	"fps":        "server.fps",
	"width":      "canvas.width",
	"height":     "canvas.height",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// LoadOptions tells Load where to look
type LoadOptions struct {
	// File is an explicit config file; empty looks for DefaultFile in Dir
	File string
	// Dir is where DefaultFile and .env are looked up (default ".")
	Dir string
	// Flags are bound through FlagKeys when set
	Flags *pflag.FlagSet
}

// Load resolves the configuration. Precedence, highest first: changed
// flags, environment, config file, defaults.
func Load(o LoadOptions) (*Config, error) {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	// A missing .env is normal; a malformed one is not
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := o.File
	if file == "" {
		candidate := filepath.Join(dir, DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if o.Flags != nil {
		for flag, key := range FlagKeys {
			if f := o.Flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EngineOptions converts the settings into engine options. Callbacks and
// the logger are left for the host to fill in.
func (c *Config) EngineOptions() conceptmap.Options {
	return conceptmap.Options{
		Width:          c.Canvas.Width,
		Height:         c.Canvas.Height,
		Physics:        c.Physics,
		MinZoom:        c.Viewport.MinZoom,
		MaxZoom:        c.Viewport.MaxZoom,
		FadeDuration:   c.Animation.Fade,
		FocusDuration:  c.Animation.Focus,
		ResizeDebounce: c.Animation.ResizeDebounce,
		Tiers:          c.Tiers.Table(),
		Theme:          c.Theme,
	}
}

// Write saves c as YAML. Existing files are kept unless overwrite is set.
func Write(c *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
