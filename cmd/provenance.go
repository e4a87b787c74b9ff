package main

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/provenance-cli/internal/auction"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/provenance"
	"github.com/sells-group/provenance-cli/internal/valuation"
)

var (
	provVehicle  string
	provField    string
	provActor    string
	provValue    string
	provURLs     []string
	provPlatform string
)

var provenanceCmd = &cobra.Command{
	Use:   "provenance",
	Short: "Resolve the provenance and market position of a field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		field, err := model.ParseField(provField)
		if err != nil {
			return err
		}
		req := valuation.Request{
			EntityID: provVehicle,
			Field:    field,
			Context: provenance.ResolveContext{
				Actor: model.Actor{ID: provActor},
				Hint:  auction.Hint{URLs: provURLs, PlatformCode: provPlatform},
			},
		}
		if provValue != "" {
			v, err := decimal.NewFromString(provValue)
			if err != nil {
				return eris.Wrapf(err, "parse --value %q", provValue)
			}
			req.CurrentValue = decimal.NewNullDecimal(v)
		}

		env, err := initEnv(cmd.Context(), "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Service.GetProvenanceAndMarket(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	provenanceCmd.Flags().StringVar(&provVehicle, "vehicle", "", "vehicle id (required)")
	provenanceCmd.Flags().StringVar(&provField, "field", string(model.FieldSalePrice), "financial field")
	provenanceCmd.Flags().StringVar(&provActor, "actor", "", "acting user id, for can_edit")
	provenanceCmd.Flags().StringVar(&provValue, "value", "", "displayed value (default: stored value)")
	provenanceCmd.Flags().StringSliceVar(&provURLs, "url", nil, "listing URLs being viewed, most recent first")
	provenanceCmd.Flags().StringVar(&provPlatform, "platform", "", "stored platform code hint")
	_ = provenanceCmd.MarkFlagRequired("vehicle")
	rootCmd.AddCommand(provenanceCmd)
}
