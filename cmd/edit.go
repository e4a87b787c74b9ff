package main

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/model"
)

var (
	editVehicle   string
	editField     string
	editValue     string
	editActor     string
	editActorName string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Set a field value as the acting user and record it as evidence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		field, err := model.ParseField(editField)
		if err != nil {
			return err
		}
		value, err := decimal.NewFromString(editValue)
		if err != nil {
			return eris.Wrapf(err, "parse --value %q", editValue)
		}
		if editActor == "" {
			return eris.New("--actor is required")
		}

		env, err := initEnv(cmd.Context(), "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.EditValue(cmd.Context(), editVehicle, field, value,
			model.Actor{ID: editActor, Name: editActorName})
		if errors.Is(err, model.ErrPermissionDenied) {
			zap.L().Warn("edit denied",
				zap.String("vehicle", editVehicle),
				zap.String("inserted_by", res.Provenance.InsertedBy),
			)
			return err
		}
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			zap.L().Warn("edit warning", zap.String("warning", w))
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	editCmd.Flags().StringVar(&editVehicle, "vehicle", "", "vehicle id (required)")
	editCmd.Flags().StringVar(&editField, "field", "", "financial field (required)")
	editCmd.Flags().StringVar(&editValue, "value", "", "new value (required)")
	editCmd.Flags().StringVar(&editActor, "actor", "", "acting user id (required)")
	editCmd.Flags().StringVar(&editActorName, "actor-name", "", "acting user display name")
	for _, f := range []string{"vehicle", "field", "value", "actor"} {
		_ = editCmd.MarkFlagRequired(f)
	}
	rootCmd.AddCommand(editCmd)
}
