package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sintaxia/internal/db"
	"github.com/vbonduro/sintaxia/internal/export"
	"github.com/vbonduro/sintaxia/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the recorded analyses",
	}
	cmd.AddCommand(newHistoryExportCmd(a))
	return cmd
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every recorded detection",
		Example: `  sintaxia history export --out detecciones.parquet
  sintaxia history export --out detecciones.yaml --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				format = filepath.Ext(out)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
			database, err := db.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB(database, a.logger)

			rows, err := store.NewAnalysisStore(database).ListDetections(cmd.Context())
			if err != nil {
				return err
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := export.Write(file, f, rows); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d detecciones -> %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().StringVar(&format, "format", "", "parquet or yaml (default: from the file extension)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
