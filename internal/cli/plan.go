package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	imagelayout "github.com/menta2k/image-layout"
)

type planOpts struct {
	exif   uint8
	asJSON bool
}

func newPlanCmd(a *app) *cobra.Command {
	var opts planOpts
	cmd := &cobra.Command{
		Use:   "plan WIDTH HEIGHT [QUERY]",
		Short: "Print the layout plan for a source size",
		Example: `  image-layout plan 4000 3000 "w=300&h=200&mode=crop" --exif 6
  image-layout plan 640 480 "maxwidth=320" --json`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := planArgs(a, args, opts.exif)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&opts.exif, "exif", 0, "EXIF orientation tag of the source (1-8, 0 for none)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full report as JSON")
	return cmd
}

// planArgs plans WIDTH HEIGHT [QUERY]
func planArgs(a *app, args []string, exif uint8) (*imagelayout.Report, error) {
	if exif > 8 {
		return nil, fmt.Errorf("--exif must be between 0 and 8")
	}
	w, err := parseDimension(args[0])
	if err != nil {
		return nil, err
	}
	h, err := parseDimension(args[1])
	if err != nil {
		return nil, err
	}
	var query string
	if len(args) > 2 {
		query = strings.TrimPrefix(args[2], "?")
	}
	return a.layout.PlanQuery(query, w, h, exif)
}

func parseDimension(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return uint32(v), nil
}

func printReport(w io.Writer, r *imagelayout.Report) {
	ideal, plan := r.Ideal, r.Plan
	printTitle(w, fmt.Sprintf("%v %v %v", ideal.Source, iconArrow, plan.Canvas))

	printKeyValue(w, "orientation", ideal.Orientation)
	printKeyValue(w, "oriented", ideal.OrientedSize())
	if ideal.Layout.HasCrop() {
		printKeyValue(w, "crop", ideal.Layout.SourceCrop)
		printKeyValue(w, "source crop", ideal.SourceCrop)
		printKeyValue(w, "retained", fmt.Sprintf("%.1f%%", ideal.Layout.Retained()*100))
	}
	printKeyValue(w, "resize", ideal.Layout.ResizeTo)
	printKeyValue(w, "canvas", fmt.Sprintf("%v at %v", plan.Canvas, plan.Placement))
	if !plan.CanvasColor.IsTransparent() {
		printKeyValue(w, "background", plan.CanvasColor)
	}
	if ideal.Padded {
		p := ideal.Padding
		printKeyValue(w, "padding", fmt.Sprintf("%d %d %d %d", p.Left, p.Top, p.Right, p.Bottom))
	}
	if !r.Request.Crop.IsEmpty() {
		printKeyValue(w, "decoder crop", r.Request.Crop)
	}
	printKeyValue(w, "prescale to", r.Request.PrescaleTo)

	for _, warn := range r.Warnings {
		printWarning(w, "%s", warn)
	}
	for i, step := range plan.Steps() {
		printStep(w, i, step)
	}
}
