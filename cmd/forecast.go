package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parkcast/parkcast/config"
	"github.com/parkcast/parkcast/core/forecast"
	"github.com/parkcast/parkcast/infra/logger"
	"github.com/parkcast/parkcast/infra/postgres"
)

var (
	forecastLocation string
	forecastModel    string
	forecastVersion  string
	forecastInterval int
	forecastDate     string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run one forecast generation pass and print the summary",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastLocation, "location", "all", "location id or 'all'")
	forecastCmd.Flags().StringVar(&forecastModel, "model", "", "forecast model name")
	forecastCmd.Flags().StringVar(&forecastVersion, "model-version", "", "forecast model version")
	forecastCmd.Flags().IntVar(&forecastInterval, "interval", 0, "slot interval in minutes")
	forecastCmd.Flags().StringVar(&forecastDate, "date", "", "target day (YYYY-MM-DD), default today+6")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := postgres.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer st.Close()

	gen := forecast.NewGenerator(st, st, forecast.NewModelRegistry(st),
		nil, logger.New("forecast-command"), nil, cfg.Forecast.UnitTimeout())

	summary, err := gen.Run(ctx, forecast.Params{
		LocationID:   forecastLocation,
		IntervalMin:  forecastInterval,
		Model:        forecastModel,
		ModelVersion: forecastVersion,
		Date:         forecastDate,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
