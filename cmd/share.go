package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/share"
)

var (
	shareURL    string
	shareTitle  string
	shareText   string
	shareSelect int
	shareAuthor string
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Ingest a shared link and optionally save a candidate",
	Long: "Classifies the shared link, searches candidates and prints the session. " +
		"With --select the chosen candidate is checked for duplicates; adding --author saves it as a favorite.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if shareURL == "" {
			return eris.New("--url is required")
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Share.Ingest(ctx, share.Payload{URL: shareURL, Title: shareTitle, Text: shareText})
		if err != nil {
			if errors.Is(err, share.ErrUnsupportedInput) {
				_ = printJSON(cmd, sess)
			}
			return err
		}

		if shareSelect >= 0 {
			if shareSelect >= len(sess.Candidates) {
				return eris.Errorf("--select %d out of range (%d candidates)", shareSelect, len(sess.Candidates))
			}
			if err := env.Share.Select(ctx, sess, sess.Candidates[shareSelect]); err != nil {
				return err
			}
			if shareAuthor != "" {
				if err := persistSession(ctx, env, sess, shareAuthor); err != nil {
					_ = printJSON(cmd, sess)
					return err
				}
			}
		}
		return printJSON(cmd, sess)
	},
}

func init() {
	shareCmd.Flags().StringVar(&shareURL, "url", "", "shared URL (required)")
	shareCmd.Flags().StringVar(&shareTitle, "title", "", "shared page title")
	shareCmd.Flags().StringVar(&shareText, "text", "", "shared text or caption")
	shareCmd.Flags().IntVar(&shareSelect, "select", -1, "index of the candidate to select")
	shareCmd.Flags().StringVar(&shareAuthor, "author", "", "user reference to save the selection for")
	rootCmd.AddCommand(shareCmd)
}

func persistSession(ctx context.Context, env *appEnv, sess *share.Session, author string) error {
	rec, err := env.Share.Persist(ctx, sess, author)
	if err != nil {
		return err
	}
	zap.L().Info("place saved",
		zap.String("place_id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("author", author),
	)
	return nil
}
