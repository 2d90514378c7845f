package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which clouds are accessible with current credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cat)
		if err != nil {
			return err
		}

		fmt.Println("Checking cloud access...")
		enabled := 0
		for _, p := range reg.List() {
			if err := p.CheckAccess(ctx); err != nil {
				fmt.Printf("  ❌ %-12s %v\n", p.Name(), err)
				continue
			}
			caps := p.Capabilities()
			extras := ""
			if caps.Accelerators {
				extras = " (accelerators)"
			}
			fmt.Printf("  ✅ %-12s %d offers%s\n", p.Name(), len(p.Offers()), extras)
			enabled++
		}

		if enabled == 0 {
			return fmt.Errorf("no cloud is accessible; configure credentials or a kubeconfig")
		}
		fmt.Printf("\n%d of %d clouds enabled\n", enabled, reg.Len())
		return nil
	},
}
