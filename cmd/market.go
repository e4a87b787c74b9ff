package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/market"
	"github.com/sells-group/provenance-cli/internal/model"
)

var (
	marketVehicle string
	marketField   string
	marketOut     string
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Comparable market sampling",
}

var marketExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a vehicle's comparable sample and fitted curve to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		field, err := model.ParseField(marketField)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Store.GetVehicle(ctx, marketVehicle)
		if err != nil {
			return err
		}
		sample, err := env.Sampler.Sample(ctx, v.Classification(), v.Year, v.ID)
		if err != nil {
			return err
		}
		if sample == nil {
			return eris.Wrapf(model.ErrInsufficientData, "fewer than %d distinct comparables for %s %s %d",
				market.MinComparables, v.Make, v.Model, v.Year)
		}
		dist := market.WithZScore(market.Estimate(sample.Prices), v.Value(field))

		f, err := os.Create(marketOut)
		if err != nil {
			return eris.Wrap(err, "create output")
		}
		defer f.Close() //nolint:errcheck

		if err := market.WriteXLSX(f, sample, dist); err != nil {
			return err
		}
		zap.L().Info("market sample exported",
			zap.String("vehicle", v.ID),
			zap.Int("comparables", sample.Comparables),
			zap.String("out", marketOut),
		)
		return f.Close()
	},
}

func init() {
	marketExportCmd.Flags().StringVar(&marketVehicle, "vehicle", "", "vehicle id (required)")
	marketExportCmd.Flags().StringVar(&marketField, "field", string(model.FieldSalePrice), "field whose value gets a z-score")
	marketExportCmd.Flags().StringVar(&marketOut, "out", "market.xlsx", "output workbook path")
	_ = marketExportCmd.MarkFlagRequired("vehicle")
	marketCmd.AddCommand(marketExportCmd)
	rootCmd.AddCommand(marketCmd)
}
