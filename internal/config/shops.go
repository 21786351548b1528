package config

import (
	"fmt"
	"net/mail"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ShopConfig represents a single shop in shops.yaml.
type ShopConfig struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Address      string `yaml:"address"`
	Description  string `yaml:"description"`
	OwnerEmail   string `yaml:"owner_email"`
	OwnerChatID  int64  `yaml:"owner_chat_id"`
	FirstSeating string `yaml:"first_seating"` // "17:00"
	LastSeating  string `yaml:"last_seating"`  // "21:00"
	SlotMinutes  int    `yaml:"slot_minutes"`
	MaxPartySize int    `yaml:"max_party_size"`
	IsActive     bool   `yaml:"is_active"`
}

// ShopDefaults holds values applied to shops that leave them unset.
type ShopDefaults struct {
	FirstSeating string `yaml:"first_seating"`
	LastSeating  string `yaml:"last_seating"`
	SlotMinutes  int    `yaml:"slot_minutes"`
	MaxPartySize int    `yaml:"max_party_size"`
}

// ShopsConfig is the root of shops.yaml.
type ShopsConfig struct {
	Shops    []ShopConfig `yaml:"shops"`
	Defaults ShopDefaults `yaml:"defaults"`
}

// LoadShopsConfig loads and validates shops.yaml.
func LoadShopsConfig(path string) (*ShopsConfig, error) {
	if path == "" {
		path = "configs/shops.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shops config: %w", err)
	}

	var cfg ShopsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse shops config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate shops config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ShopsConfig) Validate() error {
	if len(c.Shops) == 0 {
		return fmt.Errorf("no shops defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)

	for i, shop := range c.Shops {
		if shop.ID <= 0 {
			return fmt.Errorf("shop[%d]: id must be positive, got %d", i, shop.ID)
		}
		if ids[shop.ID] {
			return fmt.Errorf("shop[%d]: duplicate id %d", i, shop.ID)
		}
		ids[shop.ID] = true

		if shop.Name == "" {
			return fmt.Errorf("shop[%d]: name is required", i)
		}
		if names[shop.Name] {
			return fmt.Errorf("shop[%d]: duplicate name '%s'", i, shop.Name)
		}
		names[shop.Name] = true

		if shop.OwnerEmail != "" {
			if _, err := mail.ParseAddress(shop.OwnerEmail); err != nil {
				return fmt.Errorf("shop[%d]: invalid owner_email '%s'", i, shop.OwnerEmail)
			}
		}
		if shop.MaxPartySize < 0 {
			return fmt.Errorf("shop[%d]: max_party_size cannot be negative", i)
		}
		if err := validateSeatings(shop.FirstSeating, shop.LastSeating, shop.SlotMinutes, fmt.Sprintf("shop[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func validateSeatings(first, last string, slotMinutes int, prefix string) error {
	firstTime, err := time.Parse("15:04", first)
	if err != nil {
		return fmt.Errorf("%s.first_seating: invalid format '%s', expected HH:MM", prefix, first)
	}
	lastTime, err := time.Parse("15:04", last)
	if err != nil {
		return fmt.Errorf("%s.last_seating: invalid format '%s', expected HH:MM", prefix, last)
	}
	if lastTime.Before(firstTime) {
		return fmt.Errorf("%s: last_seating must not be before first_seating", prefix)
	}
	if slotMinutes <= 0 {
		return fmt.Errorf("%s.slot_minutes must be positive", prefix)
	}
	return nil
}

// applyDefaults fills shop fields left empty from the defaults block, then
// from the built-in evening service.
func (c *ShopsConfig) applyDefaults() {
	d := c.Defaults
	if d.FirstSeating == "" {
		d.FirstSeating = "17:00"
	}
	if d.LastSeating == "" {
		d.LastSeating = "21:00"
	}
	if d.SlotMinutes <= 0 {
		d.SlotMinutes = 60
	}
	if d.MaxPartySize <= 0 {
		d.MaxPartySize = 6
	}
	c.Defaults = d

	for i := range c.Shops {
		s := &c.Shops[i]
		if s.FirstSeating == "" {
			s.FirstSeating = d.FirstSeating
		}
		if s.LastSeating == "" {
			s.LastSeating = d.LastSeating
		}
		if s.SlotMinutes == 0 {
			s.SlotMinutes = d.SlotMinutes
		}
		if s.MaxPartySize == 0 {
			s.MaxPartySize = d.MaxPartySize
		}
	}
}

// GetShopByID returns shop config by ID.
func (c *ShopsConfig) GetShopByID(id int64) *ShopConfig {
	for i := range c.Shops {
		if c.Shops[i].ID == id {
			return &c.Shops[i]
		}
	}
	return nil
}

// GetActiveShops returns only active shops.
func (c *ShopsConfig) GetActiveShops() []ShopConfig {
	result := make([]ShopConfig, 0)
	for _, s := range c.Shops {
		if s.IsActive {
			result = append(result, s)
		}
	}
	return result
}

func (c *ShopsConfig) String() string {
	return fmt.Sprintf("ShopsConfig: %d shops (%d active)", len(c.Shops), len(c.GetActiveShops()))
}
