package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply pending database migrations, or with --status report the schema version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			settings := config.LoadSettings(viper.GetViper())
			out := cmd.OutOrStdout()

			if status {
				version, dirty, err := storage.SchemaVersion(settings.DatabasePath)
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				fmt.Fprintf(out, "Database: %s\n", settings.DatabasePath)
				fmt.Fprintf(out, "Schema version: %d\n", version)
				if dirty {
					fmt.Fprintln(out, cli.FormatWarning("The last migration did not finish; the schema is dirty"))
				}
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := initStorage(ctx, settings.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Fprintln(out, cli.FormatSuccess("Database is up to date"))
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "show the schema version without migrating")
	return cmd
}
