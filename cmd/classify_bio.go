package main

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/placematch/internal/bio"
)

var classifyBioFile string

var classifyBioCmd = &cobra.Command{
	Use:   "classify-bio [text]",
	Short: "Decide whether a profile bio describes a business",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if classifyBioFile != "" {
			var data []byte
			var err error
			if classifyBioFile == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(classifyBioFile)
			}
			if err != nil {
				return eris.Wrap(err, "read bio")
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return eris.New("bio text is required (argument or --file)")
		}

		pol, err := loadPolicy()
		if err != nil {
			return err
		}
		return printJSON(cmd, bio.NewClassifier(pol.Bio).Classify(text))
	},
}

func init() {
	classifyBioCmd.Flags().StringVar(&classifyBioFile, "file", "", "read the bio from a file (- for stdin)")
	rootCmd.AddCommand(classifyBioCmd)
}
