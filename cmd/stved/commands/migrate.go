package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/store"
)

// NewMigrateCommand opens the configured sqlite path, which applies the
// schema if it isn't already present, then closes it. The Store has no
// separate migration runner: schema creation happens on first open
// (store.Open/initializeIfMissing), so this command is mostly useful for
// provisioning the database file ahead of the first `serve`.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Initialize the sqlite schema at the configured path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			fmt.Printf("schema ready at %s\n", cfg.DBPath)
			return nil
		},
	}
}
