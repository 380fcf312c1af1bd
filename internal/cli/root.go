// Package cli implements the image-layout command-line interface.
//
// Commands:
//   - plan: print the layout plan for a source size and a query
//   - diagram: draw a plan as SVG
//   - render: apply a query to an image file or URL
//   - focus: report the subject a finder sees in an image
//   - serve: run the HTTP service
//   - config: write or show the configuration file
//
// All commands accept --verbose (-v) for debug logging and --config to
// select the TOML configuration file.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	imagelayout "github.com/menta2k/image-layout"
	"github.com/menta2k/image-layout/internal/config"
)

var (
	version = imagelayout.Version
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// app is the state shared by all commands once flags are parsed
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	layout *imagelayout.Layout
	logger *charmlog.Logger
}

// setup loads the configuration and builds the layout
func (a *app) setup(cmd *cobra.Command) error {
	level := charmlog.InfoLevel
	if a.verbose {
		level = charmlog.DebugLevel
	}
	a.logger = newLogger(cmd.ErrOrStderr(), level)
	cmd.SetContext(withLogger(cmd.Context(), a.logger))

	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("config loaded", "path", a.configPath)

	l, err := imagelayout.New(imagelayout.WithConfig(cfg), imagelayout.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.layout = l
	return nil
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "image-layout",
		Short:        "Plan crops, resizes and canvases for images",
		Long:         `image-layout computes where every pixel of a source image lands for a given orientation, crop, fit mode and padding, and can render the result.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("image-layout %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", config.GetConfigPath(), "configuration file")

	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newDiagramCmd(a))
	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newFocusCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

// Execute runs the CLI
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	root.SetErr(os.Stderr)
	return root.ExecuteContext(ctx)
}
