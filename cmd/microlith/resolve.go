package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"stand-resolver/pkg/ontology"
)

var resolveFlags struct {
	callsign string
	airport  string
	date     string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [flight-number]",
	Short: "Resolve a single flight and print the result as JSON",
	Example: `  stand-resolver resolve BA123 --airport EGLL --date 2024-03-10
  stand-resolver resolve --callsign BAW123`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := ontology.FlightInput{
			Callsign: resolveFlags.callsign,
			Airport:  resolveFlags.airport,
		}
		if len(args) == 1 {
			in.FlightNumber = args[0]
		}
		if resolveFlags.date != "" {
			date, err := time.Parse("2006-01-02", resolveFlags.date)
			if err != nil {
				return errors.Wrapf(err, "invalid --date %q, want YYYY-MM-DD", resolveFlags.date)
			}
			in.Date = &date
		}

		a, err := newApp(cfg, log, false)
		if err != nil {
			return err
		}
		defer a.close(context.Background(), log)

		res, err := a.engine.Resolve(cmd.Context(), in)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFlags.callsign, "callsign", "", "ATC callsign, used when no flight number is given")
	resolveCmd.Flags().StringVar(&resolveFlags.airport, "airport", "", "arrival airport ICAO or IATA code")
	resolveCmd.Flags().StringVar(&resolveFlags.date, "date", "", "arrival date (YYYY-MM-DD)")
}
