package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List all configured search profiles",
	Long:  "Reads the config and prints a table of all search profiles with their keyword rules.",
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-18s %-24s %-16s %-28s %s\n", "Profile", "Query", "Location", "Keywords", "Deny")
	fmt.Println(strings.Repeat("─", 100))

	for _, p := range cfg.Profiles {
		deny := strings.Join(p.DenyKeywords, ",")
		if deny == "" {
			deny = "-"
		}
		fmt.Printf("%-18s %-24s %-16s %-28s %s\n", p.Name, p.Query, p.Location, strings.Join(p.Keywords, ","), deny)
		if len(p.Keywords) == 0 {
			fmt.Printf("  ⚠ %s has no keywords and will match nothing\n", p.Name)
		}
	}

	fmt.Printf("\nTotal: %d profiles\n", len(cfg.Profiles))
	return nil
}
