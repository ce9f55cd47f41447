package config

import (
	"fmt"
	"os"
	"time"

	"praxis/internal/model"

	"gopkg.in/yaml.v3"
)

// ProviderConfig overrides scheduling attributes of one provider.
type ProviderConfig struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	Color        string              `yaml:"color,omitempty"`
	WorkingDays  []int               `yaml:"working_days,omitempty"` // 1=Mon, 7=Sun
	WorkingHours *model.WorkingHours `yaml:"working_hours,omitempty"`
}

// DefaultsConfig represents global default settings.
type DefaultsConfig struct {
	WorkingDays  []int               `yaml:"working_days"`
	WorkingHours *model.WorkingHours `yaml:"working_hours"`
}

// ProvidersConfig is the root configuration for providers.yaml.
type ProvidersConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	Defaults  DefaultsConfig   `yaml:"defaults"`
}

// LoadProvidersConfig loads and validates the provider directory overlay.
func LoadProvidersConfig(path string) (*ProvidersConfig, error) {
	if path == "" {
		path = "configs/providers.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers config: %w", err)
	}

	var cfg ProvidersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse providers config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate providers config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ProvidersConfig) Validate() error {
	ids := make(map[string]bool)
	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider[%d]: id is required", i)
		}
		if ids[p.ID] {
			return fmt.Errorf("provider[%d]: duplicate id '%s'", i, p.ID)
		}
		ids[p.ID] = true

		if err := validateHours(p.WorkingHours, fmt.Sprintf("provider[%d].working_hours", i)); err != nil {
			return err
		}
		if err := validateDays(p.WorkingDays, fmt.Sprintf("provider[%d].working_days", i)); err != nil {
			return err
		}
	}

	if err := validateHours(c.Defaults.WorkingHours, "defaults.working_hours"); err != nil {
		return err
	}
	return validateDays(c.Defaults.WorkingDays, "defaults.working_days")
}

func validateHours(wh *model.WorkingHours, prefix string) error {
	if wh == nil {
		return nil
	}
	if wh.StartHour < 0 || wh.StartHour > 23 || wh.EndHour < 0 || wh.EndHour > 23 {
		return fmt.Errorf("%s: hours must be within 0-23", prefix)
	}
	if wh.EndHour < wh.StartHour {
		return fmt.Errorf("%s: end_hour must not be before start_hour", prefix)
	}
	return nil
}

func validateDays(days []int, prefix string) error {
	for i, d := range days {
		if d < 1 || d > 7 {
			return fmt.Errorf("%s[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", prefix, i, d)
		}
	}
	return nil
}

// applyDefaults fills providers without explicit hours or days.
func (c *ProvidersConfig) applyDefaults() {
	for i := range c.Providers {
		if c.Providers[i].WorkingHours == nil && c.Defaults.WorkingHours != nil {
			wh := *c.Defaults.WorkingHours
			c.Providers[i].WorkingHours = &wh
		}
		if len(c.Providers[i].WorkingDays) == 0 && len(c.Defaults.WorkingDays) > 0 {
			c.Providers[i].WorkingDays = append([]int(nil), c.Defaults.WorkingDays...)
		}
	}
}

// Weekdays converts 1=Mon..7=Sun to time.Weekday.
func Weekdays(days []int) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d%7))
	}
	return out
}

// GetProvider returns provider config by ID.
func (c *ProvidersConfig) GetProvider(id string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i]
		}
	}
	return nil
}

// Overlay fills working days, hours, name and color the directory left
// empty. Values supplied by the directory win.
func (c *ProvidersConfig) Overlay(resources []model.Resource) []model.Resource {
	if c == nil {
		return resources
	}
	out := make([]model.Resource, len(resources))
	for i, r := range resources {
		p := c.GetProvider(r.ID)
		if p != nil {
			if r.Name == "" {
				r.Name = p.Name
			}
			if r.Color == "" {
				r.Color = p.Color
			}
		}
		if len(r.WorkingDays) == 0 {
			if p != nil && len(p.WorkingDays) > 0 {
				r.WorkingDays = Weekdays(p.WorkingDays)
			} else {
				r.WorkingDays = Weekdays(c.Defaults.WorkingDays)
			}
		}
		if r.WorkingHours == nil {
			var wh *model.WorkingHours
			if p != nil && p.WorkingHours != nil {
				wh = p.WorkingHours
			} else {
				wh = c.Defaults.WorkingHours
			}
			if wh != nil {
				copied := *wh
				r.WorkingHours = &copied
			}
		}
		out[i] = r
	}
	return out
}

// String returns a summary of the configuration.
func (c *ProvidersConfig) String() string {
	return fmt.Sprintf("ProvidersConfig: %d providers", len(c.Providers))
}
