package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/larder"
)

// ErrInvalidProfile is returned when a profile file fails validation.
var ErrInvalidProfile = errors.New("profile: invalid profile")

var validate = validator.New()

// Duration accepts "90s" and "5m" style values in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("profile: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Class is a named TTL class: a key template plus the expiry applied to
// keys built from it.
type Class struct {
	Name string `yaml:"name" validate:"required"`
	// Template is a printf-style key template, e.g. "user:%s".
	Template string   `yaml:"template" validate:"required"`
	TTL      Duration `yaml:"ttl" validate:"required"`
}

// Key renders the class template with the given arguments.
func (c Class) Key(args ...any) string {
	return fmt.Sprintf(c.Template, args...)
}

// Expiry returns the class TTL as a time.Duration.
func (c Class) Expiry() time.Duration {
	return time.Duration(c.TTL)
}

// Profile tunes a cache from configuration instead of code.
type Profile struct {
	// Name identifies the profile in logs.
	Name string `yaml:"name" validate:"required"`
	// DefaultTTL applies to entries cached without an explicit TTL.
	DefaultTTL Duration `yaml:"default_ttl" validate:"required"`
	// SweepInterval between expiry sweeps. Absent keeps the cache
	// default; use DisableSweep to turn sweeping off.
	SweepInterval Duration `yaml:"sweep_interval"`
	// SweepSchedule is a cron expression, mutually exclusive with
	// SweepInterval.
	SweepSchedule string `yaml:"sweep_schedule"`
	// DisableSweep turns the background sweeper off entirely.
	DisableSweep bool `yaml:"disable_sweep"`
	// KeyPrefix namespaces this cache's durable records.
	KeyPrefix string `yaml:"key_prefix"`
	// Classes are named TTL overrides for groups of keys.
	Classes []Class `yaml:"classes" validate:"dive"`
}

// Load reads and validates a profile from a YAML file.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profile: open %q: %w", path, err)
	}
	defer f.Close()

	var p Profile
	if err := yaml.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("profile: parse %q: %w", path, err)
	}
	if err := p.validateProfile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validateProfile() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(fields, ", "))
		}
		return err
	}

	if p.SweepInterval > 0 && p.SweepSchedule != "" {
		return fmt.Errorf("%w: sweep_interval and sweep_schedule are mutually exclusive", ErrInvalidProfile)
	}
	if p.DisableSweep && (p.SweepInterval > 0 || p.SweepSchedule != "") {
		return fmt.Errorf("%w: disable_sweep conflicts with a sweep cadence", ErrInvalidProfile)
	}

	seen := make(map[string]struct{}, len(p.Classes))
	for _, c := range p.Classes {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate class %q", ErrInvalidProfile, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Class returns the named TTL class.
func (p *Profile) Class(name string) (Class, bool) {
	for _, c := range p.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// Options converts the profile into cache options.
func (p *Profile) Options() []larder.Option {
	opts := []larder.Option{larder.WithDefaultTTL(time.Duration(p.DefaultTTL))}
	if p.KeyPrefix != "" {
		opts = append(opts, larder.WithKeyPrefix(p.KeyPrefix))
	}
	switch {
	case p.DisableSweep:
		opts = append(opts, larder.WithSweepInterval(0))
	case p.SweepSchedule != "":
		opts = append(opts, larder.WithSweepSchedule(p.SweepSchedule))
	case p.SweepInterval > 0:
		opts = append(opts, larder.WithSweepInterval(time.Duration(p.SweepInterval)))
	}
	return opts
}
