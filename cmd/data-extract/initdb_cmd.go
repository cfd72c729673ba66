package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/OlsenJo/data-extract-app/internal/config"
	"github.com/OlsenJo/data-extract-app/internal/store"
)

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the gas_shipments table and indexes if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return withCode(exitUsage, err)
			}
			logger := log.New(os.Stderr, "", log.LstdFlags)

			st, err := store.New(cmd.Context(), cfg.DB.DSN(), store.Options{MaxConns: cfg.DB.MaxConns}, logger)
			if err != nil {
				return withCode(exitStore, err)
			}
			defer st.Close()

			if err := st.EnsureSchema(cmd.Context()); err != nil {
				return withCode(exitStore, err)
			}
			return nil
		},
	}
}
