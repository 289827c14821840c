package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sintaxia/internal/analysis"
	"github.com/vbonduro/sintaxia/internal/classes"
	"github.com/vbonduro/sintaxia/internal/domain"
	"github.com/vbonduro/sintaxia/internal/library"
)

func newDetectCmd(a *app) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the configured detector on one image",
		Long: `Runs the configured detector once and prints each detection with its
canonical class, confidence and whether it can be shown in the viewer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			image, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			detectors := newDetectorService(a.cfg, a.logger)
			defer func() { _ = detectors.Close() }()

			raw, err := detectors.Detect(cmd.Context(), image)
			if err != nil {
				return err
			}

			dets := make([]domain.Detection, 0, len(raw))
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ETIQUETA\tCLASE\tCONFIANZA\tTIC")
			for _, r := range raw {
				d := domain.Detection{ClassName: classes.Normalize(r.Label), Confidence: r.Confidence * 100}
				dets = append(dets, d)
				fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%t\n", r.Label, d.ClassName, d.Confidence, classes.IsRelevant(d.ClassName))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			lib := library.New(a.cfg.LibraryRoot, a.logger)
			if target, ok := analysis.Select(dets, lib.HasAsset); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "objetivo: %s\n", target)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "objetivo: ninguno")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "image file to analyze")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
