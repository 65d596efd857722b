package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/model"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk load places from a JSON file into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		reqs, err := readImportFile(importFilePath)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.ImportPlaces(ctx, reqs)
		if err != nil {
			return eris.Wrap(err, "import places")
		}

		zap.L().Info("import complete",
			zap.Int64("imported", n),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

// readImportFile reads a JSON array of create requests.
func readImportFile(path string) ([]model.CreateRequest, error) {
	if path == "" {
		return nil, eris.New("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read import file")
	}
	var reqs []model.CreateRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, eris.Wrap(err, "parse import file")
	}
	if len(reqs) == 0 {
		return nil, eris.New("import file contains no places")
	}
	return reqs, nil
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to a JSON array of places (required)")
	rootCmd.AddCommand(importCmd)
}
