package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"devdash/internal/store"
)

var setCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Write a setting; omit the value to clear it",
	Long: "Write a setting to the settings file. Known keys:\n  " +
		strings.Join(store.KnownKeys, "\n  "),
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !slices.Contains(store.KnownKeys, key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	raw := ""
	if len(args) == 2 {
		raw = args[1]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	if err := settings.Set(key, store.Coerce(key, raw)); err != nil {
		return err
	}

	shown := raw
	if store.Secret(key) && raw != "" {
		shown = "(hidden)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)
	return nil
}
