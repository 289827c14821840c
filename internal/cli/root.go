// Package cli holds the sintaxia command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sintaxia/internal/config"
	"github.com/vbonduro/sintaxia/internal/logging"
)

// app carries what every subcommand needs once the root has run its setup.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func()
}

func NewRootCmd() *cobra.Command {
	a := &app{closeLog: func() {}}

	cmd := &cobra.Command{
		Use:   "sintaxia",
		Short: "Educational ICT chatbot with object detection and a 3D viewer",
		Long: `SINTAXIA answers students' questions about information and communication
technology, recognizes devices in photos and publishes a 3D model of the
recognized device to a browser viewer.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.closeLog() },
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML file overlaid on the environment configuration")

	cmd.AddCommand(
		newServeCmd(a),
		newLibraryCmd(a),
		newDetectCmd(a),
		newHistoryCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadDotEnv(""); err != nil {
		return err
	}

	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	logger, cleanup, err := logging.New(a.cfg.LogLevel, a.cfg.LogFile, a.cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.closeLog = cleanup
	return nil
}
