package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Razdnut/torna-a-casa/internal/config"
	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/ledger"
	"github.com/Razdnut/torna-a-casa/internal/store"
)

var (
	cfg    *config.Config
	policy ledger.Policy
	db     store.Store
)

var rootCmd = &cobra.Command{
	Use:   "tornacasa",
	Short: "Daily work-attendance tracking with encrypted storage",
	Long: `Torna a casa records your daily entry and exit times, derives the
required exit time and the day's debt or credit against the contractual
duration, and keeps every saved day encrypted at rest.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		policy, err = cfg.Policy()
		if err != nil {
			return err
		}
		secret, err := cfg.ResolveSecret()
		if err != nil {
			return err
		}
		db, err = store.Open(cmd.Context(), store.Options{
			DatabasePath: cfg.DatabasePath,
			FallbackPath: cfg.FallbackPath,
			Box:          cryptox.NewBox(secret),
		})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(autosaveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
