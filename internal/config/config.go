// Package config provides YAML-based world configuration loading for the
// hattown server: which areas exist and what the shop sells.
package config

import (
	"errors"
	"fmt"
)

// WorldConfig describes every interactable area the server hosts and the
// shop's pack catalog.
type WorldConfig struct {
	Areas []AreaConfig `yaml:"areas"`
	Packs []PackConfig `yaml:"packs"`
}

// AreaConfig declares one interactable area.
type AreaConfig struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"` // "PURCHASE" or "TRADE"
}

// PackConfig is one purchasable hat pack with its weighted drop table.
type PackConfig struct {
	Name  string       `yaml:"name"`
	Price int          `yaml:"price"`
	Drops []DropConfig `yaml:"drops"`
}

// DropConfig is one weighted entry in a pack's drop table.
type DropConfig struct {
	Hat    string `yaml:"hat"`
	Weight int    `yaml:"weight"`
}

// HatCatalog lists every hat the world knows about. Pack drop tables may
// only reference these.
var HatCatalog = []string{
	"baseball",
	"chef",
	"winter",
	"tophat",
	"cowboy",
	"pirate",
	"wizard",
	"party",
	"viking",
	"special",
}

// KnownHat reports whether the hat is in the catalog.
func KnownHat(hat string) bool {
	for _, h := range HatCatalog {
		if h == hat {
			return true
		}
	}
	return false
}

// Validate checks the world config for the mistakes a hand-edited YAML file
// tends to contain: duplicate or empty ids, unknown kinds, packs that can
// never roll a hat.
func (c WorldConfig) Validate() error {
	if len(c.Areas) == 0 {
		return errors.New("config: no areas declared")
	}

	seen := make(map[string]bool, len(c.Areas))
	for _, a := range c.Areas {
		if a.ID == "" {
			return errors.New("config: area with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("config: duplicate area id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Kind != "PURCHASE" && a.Kind != "TRADE" {
			return fmt.Errorf("config: area %q has unknown kind %q", a.ID, a.Kind)
		}
	}

	packNames := make(map[string]bool, len(c.Packs))
	for _, p := range c.Packs {
		if p.Name == "" {
			return errors.New("config: pack with empty name")
		}
		if packNames[p.Name] {
			return fmt.Errorf("config: duplicate pack %q", p.Name)
		}
		packNames[p.Name] = true
		if p.Price <= 0 {
			return fmt.Errorf("config: pack %q has non-positive price %d", p.Name, p.Price)
		}

		total := 0
		for _, d := range p.Drops {
			if !KnownHat(d.Hat) {
				return fmt.Errorf("config: pack %q drops unknown hat %q", p.Name, d.Hat)
			}
			if d.Weight <= 0 {
				return fmt.Errorf("config: pack %q has non-positive weight for %q", p.Name, d.Hat)
			}
			total += d.Weight
		}
		if total == 0 {
			return fmt.Errorf("config: pack %q has an empty drop table", p.Name)
		}
	}

	return nil
}
