package conceptmap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/interact"
	"github.com/recera/conceptmap/pkg/conceptmap/physics"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// Options configures an Engine. Zero values take the defaults listed on
// each field.
type Options struct {
	// Canvas size used when the surface reports none (default 800x600)
	Width  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`

	// Physics constants; each zero field takes physics.DefaultConfig
	Physics physics.Config

	// Viewport zoom bounds (default 0.2 and 5.0)
	MinZoom float64 `validate:"gt=0"`
	MaxZoom float64 `validate:"gt=0,gtefield=MinZoom"`

	// Animation
	FadeDuration   time.Duration `validate:"gte=0"` // default 300ms
	FocusDuration  time.Duration `validate:"gte=0"` // default 500ms
	ResizeDebounce time.Duration `validate:"gte=0"` // default 150ms

	// Appearance; missing tiers and empty colors take defaults
	Tiers graph.TierTable `validate:"dive"`
	Theme render.Theme

	// FitPadding is the screen margin kept by FitGraph (default 40)
	FitPadding float64 `validate:"gte=0"`

	// Keymap overrides the keyboard bindings
	Keymap interact.Keymap `validate:"-"`

	// Detail-panel callbacks (optional)
	OnSelect func(Detail)    `validate:"-"`
	OnClose  func()          `validate:"-"`
	OnHover  func(id string) `validate:"-"`
	Logger   *slog.Logger    `validate:"-"`
}

// DefaultOptions returns the defaults with no callbacks
func DefaultOptions() Options {
	return Options{
		Width:          800,
		Height:         600,
		Physics:        physics.DefaultConfig(),
		MinZoom:        0.2,
		MaxZoom:        5.0,
		FadeDuration:   300 * time.Millisecond,
		FocusDuration:  500 * time.Millisecond,
		ResizeDebounce: 150 * time.Millisecond,
		Tiers:          graph.DefaultTiers(),
		Theme:          render.DefaultTheme(),
		FitPadding:     40,
		Keymap:         interact.DefaultKeymap(),
	}
}

func (o *Options) withDefaults() Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	if o.Width != 0 {
		d.Width = o.Width
	}
	if o.Height != 0 {
		d.Height = o.Height
	}
	if o.Physics.Repulsion != 0 {
		d.Physics.Repulsion = o.Physics.Repulsion
	}
	if o.Physics.Attraction != 0 {
		d.Physics.Attraction = o.Physics.Attraction
	}
	if o.Physics.Damping != 0 {
		d.Physics.Damping = o.Physics.Damping
	}
	if o.Physics.MaxVelocity != 0 {
		d.Physics.MaxVelocity = o.Physics.MaxVelocity
	}
	if o.Physics.Padding != 0 {
		d.Physics.Padding = o.Physics.Padding
	}
	if o.Physics.Iterations != 0 {
		d.Physics.Iterations = o.Physics.Iterations
	}
	if o.MinZoom != 0 {
		d.MinZoom = o.MinZoom
	}
	if o.MaxZoom != 0 {
		d.MaxZoom = o.MaxZoom
	}
	if o.FadeDuration != 0 {
		d.FadeDuration = o.FadeDuration
	}
	if o.FocusDuration != 0 {
		d.FocusDuration = o.FocusDuration
	}
	if o.ResizeDebounce != 0 {
		d.ResizeDebounce = o.ResizeDebounce
	}
	for k, tier := range o.Tiers {
		def := d.Tiers[k]
		if tier.Radius == 0 {
			tier.Radius = def.Radius
		}
		if tier.Color == "" {
			tier.Color = def.Color
		}
		d.Tiers[k] = tier
	}
	d.Theme = o.Theme.WithDefaults()
	if o.FitPadding != 0 {
		d.FitPadding = o.FitPadding
	}
	if o.Keymap != nil {
		d.Keymap = o.Keymap
	}
	d.OnSelect = o.OnSelect
	d.OnClose = o.OnClose
	d.OnHover = o.OnHover
	d.Logger = o.Logger
	return d
}

// ConfigurationError reports an invalid option at construction
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("conceptmap: invalid option %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks o after defaults have been applied
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Field: "options", Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Options.")
	reason := fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf("got %v, want %s", fe.Value(), reason)}
}
