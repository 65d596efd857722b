package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/model"
)

var (
	searchLat    float64
	searchLng    float64
	searchRadius float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search places and flag already registered ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		q := model.SearchQuery{Text: strings.Join(args, " "), RadiusMeters: searchRadius}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			q.Center = &model.Coordinate{Lat: searchLat, Lng: searchLng}
		}

		cands, err := env.Pipeline.Search(ctx, q)
		if err != nil {
			return err
		}

		registered := 0
		for _, c := range cands {
			if c.IsRegistered {
				registered++
			}
		}
		zap.L().Info("search complete",
			zap.String("query", q.Text),
			zap.Int("candidates", len(cands)),
			zap.Int("registered", registered),
		)
		return printJSON(cmd, cands)
	},
}

func init() {
	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "latitude of the search center")
	searchCmd.Flags().Float64Var(&searchLng, "lng", 0, "longitude of the search center")
	searchCmd.Flags().Float64Var(&searchRadius, "radius", 0, "search radius in meters (default from config)")
	rootCmd.AddCommand(searchCmd)
}
