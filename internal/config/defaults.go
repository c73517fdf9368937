package config

import (
	_ "embed"
)

//go:embed defaults/world.yaml
var defaultWorldYAML []byte

// DefaultWorldConfig returns the default world: one hat shop, one trading
// post, and the three standard packs.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Areas: []AreaConfig{
			{ID: "hat-shop", Kind: "PURCHASE"},
			{ID: "trading-post", Kind: "TRADE"},
		},
		Packs: []PackConfig{
			{
				Name:  "starter",
				Price: 10,
				Drops: []DropConfig{
					{Hat: "baseball", Weight: 39},
					{Hat: "chef", Weight: 30},
					{Hat: "winter", Weight: 20},
					{Hat: "cowboy", Weight: 11},
				},
			},
			{
				Name:  "deluxe",
				Price: 25,
				Drops: []DropConfig{
					{Hat: "cowboy", Weight: 39},
					{Hat: "pirate", Weight: 30},
					{Hat: "tophat", Weight: 20},
					{Hat: "wizard", Weight: 11},
				},
			},
			{
				Name:  "premium",
				Price: 50,
				Drops: []DropConfig{
					{Hat: "wizard", Weight: 39},
					{Hat: "party", Weight: 30},
					{Hat: "viking", Weight: 25},
					{Hat: "special", Weight: 6},
				},
			},
		},
	}
}

// GetDefaultYAML returns the embedded default world YAML.
func GetDefaultYAML() []byte {
	return defaultWorldYAML
}
