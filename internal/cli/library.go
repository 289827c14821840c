package cli

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/vbonduro/sintaxia/internal/classes"
	"github.com/vbonduro/sintaxia/internal/library"
)

func newLibraryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the curated 3D model library",
	}
	cmd.AddCommand(
		newLibraryRebuildCmd(a),
		newLibraryAddCmd(a),
		newLibraryShowCmd(a),
	)
	return cmd
}

func newLibraryRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from the models under <root>/library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib := library.New(a.cfg.LibraryRoot, a.logger)

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Indexando modelos"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			idx, err := lib.Rebuild(func(string) { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}

			models := 0
			for _, recs := range idx {
				models += len(recs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d clases, %d modelos -> %s\n", len(idx), models, lib.IndexPath())
			return nil
		},
	}
}

func newLibraryAddCmd(a *app) *cobra.Command {
	var meta library.Record

	cmd := &cobra.Command{
		Use:   "add <class> <model.obj>",
		Short: "Copy a model into the library and index it",
		Example: `  sintaxia library add router ~/modelos/router.obj --name "Router TP-Link" --license CC-BY-4.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library.New(a.cfg.LibraryRoot, a.logger)
			rec, err := lib.Add(args[0], args[1], meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agregado %s\n", rec.File)
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.Name, "name", "", "display name")
	cmd.Flags().StringVar(&meta.License, "license", "", "license of the model")
	cmd.Flags().StringVar(&meta.Source, "source", "", "where the model came from")
	cmd.Flags().StringVar(&meta.Author, "author", "", "author of the model")
	return cmd
}

func newLibraryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [class]",
		Short: "Print the library index, or the records of one class",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library.New(a.cfg.LibraryRoot, a.logger)
			idx, err := lib.Load()
			if err != nil {
				return err
			}

			var out any = idx
			if len(args) == 1 {
				class := classes.Normalize(args[0])
				recs, ok := idx[class]
				if !ok {
					return fmt.Errorf("no models indexed for %q", class)
				}
				out = recs
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode index: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if len(args) == 0 {
				missing := missingClasses(idx)
				if len(missing) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "sin modelo: %v\n", missing)
				}
			}
			return nil
		},
	}
}

// missingClasses lists whitelisted classes without any indexed model.
func missingClasses(idx library.Index) []string {
	var missing []string
	for _, c := range classes.Whitelist() {
		if len(idx[c]) == 0 {
			missing = append(missing, c)
		}
	}
	slices.Sort(missing)
	return missing
}
