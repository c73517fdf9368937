package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/hattown/internal/config"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List the configured areas",
	Long: `Show the areas the server would host with the current configuration,
and the pack catalog sold in purchase areas.

Examples:
  hattownd areas
  hattownd areas --config ./world.yaml`,
	Run: runAreas,
}

func runAreas(_ *cobra.Command, _ []string) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading world config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Areas:")
	for _, a := range cfg.Areas {
		fmt.Printf("  %-16s  %s\n", a.ID, a.Kind)
	}

	if len(cfg.Packs) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Packs:")
	for _, p := range cfg.Packs {
		fmt.Printf("  %-10s  %3d coins\n", p.Name, p.Price)
		for _, d := range p.Drops {
			fmt.Printf("    %-10s  weight %d\n", d.Hat, d.Weight)
		}
	}
}
