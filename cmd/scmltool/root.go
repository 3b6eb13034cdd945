package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/chophuman/internal/config"
	"github.com/Faultbox/chophuman/internal/logger"
	"github.com/Faultbox/chophuman/pkg/formats"
)

// app carries the state shared by all subcommands.
type app struct {
	overrides config.Overrides
	cfg       *config.Config
	out       io.Writer
	errOut    io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "scmltool",
		Short: "Inspect, sample and retarget SCML skeletal animations",
		Long: `scmltool works with SCML (Spriter) files describing skeletal sprite
animations: it prints their structure, samples poses, checks their image
assets and retargets every animation onto a new rest pose.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.overrides.ConfigPath, "config", "", "config file (default: ./scmltool.yaml or <config dir>/config.yaml)")
	flags.BoolVar(&a.overrides.Debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.overrides.LogFile, "log-file", "", "also write logs to this file")

	root.AddCommand(
		newInfoCmd(a),
		newPoseCmd(a),
		newRetargetCmd(a),
		newAssetsCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads config and initializes the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.InitFromConfig(cfg.Logging, a.errOut); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("command", cmd.Name()), zap.String("rest", cfg.Retarget.RestAnimation))
	return nil
}

// codecOptions returns the SCML options implied by the config.
func (a *app) codecOptions() []formats.Option {
	return []formats.Option{
		formats.WithLogger(logger.Named("scml")),
		formats.WithGenerator(a.cfg.Export.Generator, a.cfg.Export.GeneratorVersion),
		formats.WithEncoding(a.cfg.Export.Encoding),
	}
}

// openEntity parses an SCML file and picks one entity from it.
func (a *app) openEntity(path, name string) (*formats.Document, *formats.Entity, error) {
	doc, err := formats.ParseSCMLFile(path, a.codecOptions()...)
	if err != nil {
		return nil, nil, err
	}
	entity, err := doc.Entity(name)
	if err != nil {
		return nil, nil, err
	}
	return doc, entity, nil
}

func (a *app) num(v float64) string {
	return strconv.FormatFloat(v+0, 'f', a.cfg.Playback.Precision, 64)
}
