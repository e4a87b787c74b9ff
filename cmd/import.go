package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/ingest"
)

var (
	importPath  string
	importSheet string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import vehicles from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := ingest.ReadRows(ctx, importPath, ingest.ReadOptions{SheetName: importSheet})
		if err != nil {
			return err
		}
		vehicles, rowErrs, err := ingest.ParseVehicles(rows)
		if err != nil {
			return err
		}
		for _, re := range rowErrs {
			zap.L().Warn("import: skipping row", zap.Int("row", re.Row), zap.Error(re.Err))
		}

		env, err := initEnv(ctx, "import")
		if err != nil {
			return err
		}
		defer env.Close()

		seeder, err := env.seeder()
		if err != nil {
			return err
		}
		n, err := seeder.ImportVehicles(ctx, vehicles)
		if err != nil {
			return eris.Wrap(err, "import vehicles")
		}

		zap.L().Info("import complete",
			zap.Int64("imported", n),
			zap.Int("skipped", len(rowErrs)),
			zap.String("file", importPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to .csv or .xlsx file (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default: first sheet)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
