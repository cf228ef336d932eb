package main

import (
	"context"
	"fmt"
	"time"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the rental tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := intconfig.LoadEnv()
			db := intconfig.ConnectDB(env.MySQLDSN)
			defer intconfig.CloseDB()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			applied, err := intdb.Migrate(ctx, db)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
			}
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tables created\n", len(applied))
			return nil
		},
	}
}
