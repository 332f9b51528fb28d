package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load reference airports, stands and aircraft",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Seed(); err != nil {
			return errors.Wrap(err, "failed to seed database")
		}
		log.Info("reference data loaded")
		return nil
	},
}
