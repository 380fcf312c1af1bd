package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-layout/pkg/diagram"
)

type diagramOpts struct {
	exif     uint8
	output   string
	panel    float64
	noLabels bool
}

func newDiagramCmd(a *app) *cobra.Command {
	opts := diagramOpts{panel: 240}
	cmd := &cobra.Command{
		Use:   "diagram WIDTH HEIGHT [QUERY]",
		Short: "Draw the layout plan for a source size as SVG",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := planArgs(a, args, opts.exif)
			if err != nil {
				return err
			}

			svgOpts := []diagram.SVGOption{diagram.WithPlan(report.Plan), diagram.WithPanelSize(opts.panel)}
			if len(args) > 2 {
				svgOpts = append(svgOpts, diagram.WithTitle(args[2]))
			}
			if opts.noLabels {
				svgOpts = append(svgOpts, diagram.WithoutLabels())
			}
			svg := diagram.RenderSVG(report.Ideal, svgOpts...)

			if opts.output == "" || opts.output == "-" {
				_, err := cmd.OutOrStdout().Write(svg)
				return err
			}
			if err := os.WriteFile(opts.output, svg, 0644); err != nil {
				return fmt.Errorf("write %s: %w", opts.output, err)
			}
			printSuccess(cmd.OutOrStdout(), "wrote %s", opts.output)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&opts.exif, "exif", 0, "EXIF orientation tag of the source (1-8, 0 for none)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().Float64Var(&opts.panel, "panel", opts.panel, "panel size in pixels")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit text labels")
	return cmd
}
