package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placematch/internal/model"
)

var (
	resolveName string
	resolveLat  float64
	resolveLng  float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "List registered places that duplicate a candidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if resolveName == "" {
			return eris.New("--name is required")
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		matches := env.Resolver.Resolve(ctx, model.PlaceRecord{
			Name: resolveName,
			Lat:  resolveLat,
			Lng:  resolveLng,
		})

		out := make([]*model.MatchSummary, 0, len(matches))
		for _, m := range matches {
			out = append(out, m.Summarize())
		}
		return printJSON(cmd, out)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "candidate name (required)")
	resolveCmd.Flags().Float64Var(&resolveLat, "lat", 0, "candidate latitude")
	resolveCmd.Flags().Float64Var(&resolveLng, "lng", 0, "candidate longitude")
	rootCmd.AddCommand(resolveCmd)
}
