package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	imagelayout "github.com/menta2k/image-layout"
	"github.com/menta2k/image-layout/internal/config"
	"github.com/menta2k/image-layout/pkg/focus"
	"github.com/menta2k/image-layout/pkg/orientation"
	"github.com/menta2k/image-layout/pkg/processing"
)

func newFocusCmd(a *app) *cobra.Command {
	var backend string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "focus INPUT",
		Short: "Report the primary subject of an image and the gravity it implies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			finder := a.layout.Finder()
			if backend != "" || finder == nil {
				fc := a.cfg.Focus
				fc.Backend = firstNonEmpty(backend, config.FocusSaliency)
				f, err := imagelayout.NewFinder(fc)
				if err != nil {
					return err
				}
				if f == nil {
					return fmt.Errorf("focus backend %q finds nothing", fc.Backend)
				}
				finder = f
			}

			src, err := a.layout.Processor().Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			img := src.Image
			if o, ok := orientation.FromExif(src.Exif); ok {
				img = processing.Orient(img, o)
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			res, err := finder.Find(cmd.Context(), img)
			if err != nil {
				return err
			}
			prog.done("analyzed " + args[0])

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if !res.Found() {
				printWarning(w, "no subject found")
			} else {
				p := res.Primary
				printKeyValue(w, "subject", p.Label)
				printKeyValue(w, "confidence", fmt.Sprintf("%.2f", p.Confidence))
				printKeyValue(w, "box", fmt.Sprintf("%.3f,%.3f %.3fx%.3f", p.Box.X, p.Box.Y, p.Box.W, p.Box.H))
			}
			if res.Description != "" {
				printKeyValue(w, "description", res.Description)
			}
			printKeyValue(w, "gravity", focus.Gravity(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "override the configured backend: saliency or ollama")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
