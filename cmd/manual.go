package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placematch/internal/model"
)

var (
	manualName        string
	manualLocation    string
	manualLat         float64
	manualLng         float64
	manualTags        string
	manualDescription string
	manualImageURL    string
	manualAuthor      string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Register a place entered by hand and save it as a favorite",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if manualAuthor == "" {
			return eris.New("--author is required")
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Share.Manual(model.PlaceRecord{
			Name:        manualName,
			Location:    manualLocation,
			Lat:         manualLat,
			Lng:         manualLng,
			Tags:        manualTags,
			Description: manualDescription,
			ImageURL:    manualImageURL,
		})
		if err != nil {
			return err
		}

		if err := persistSession(ctx, env, sess, manualAuthor); err != nil {
			_ = printJSON(cmd, sess)
			return err
		}
		return printJSON(cmd, sess)
	},
}

func init() {
	manualCmd.Flags().StringVar(&manualName, "name", "", "place name (required)")
	manualCmd.Flags().StringVar(&manualLocation, "location", "", "address or area text")
	manualCmd.Flags().Float64Var(&manualLat, "lat", 0, "latitude (default from config)")
	manualCmd.Flags().Float64Var(&manualLng, "lng", 0, "longitude (default from config)")
	manualCmd.Flags().StringVar(&manualTags, "tags", "", "comma-separated tags")
	manualCmd.Flags().StringVar(&manualDescription, "description", "", "free-text note")
	manualCmd.Flags().StringVar(&manualImageURL, "image-url", "", "image URL")
	manualCmd.Flags().StringVar(&manualAuthor, "author", "", "user reference (required)")
	rootCmd.AddCommand(manualCmd)
}
