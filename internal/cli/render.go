package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-layout/internal/utils"
	"github.com/menta2k/image-layout/pkg/processing"
)

type renderOpts struct {
	outDir   string
	format   string
	quality  int
	lossless bool
	debug    bool
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render INPUT [QUERY]",
		Short: "Render an image file, URL or directory through a query",
		Long: `Render an image file, URL or directory through a query.

When INPUT is a directory every image below it is rendered with the same query.`,
		Example: `  image-layout render photo.jpg "w=400&h=400&mode=crop"
  image-layout render https://example.com/a.png "maxwidth=800" --format webp --debug
  image-layout render ./photos "w=200&h=200&mode=pad" -o thumbs`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.outDir == "" {
				opts.outDir = a.cfg.Output.Dir
			}
			var query string
			if len(args) > 1 {
				query = strings.TrimPrefix(args[1], "?")
			}
			if err := utils.EnsureDir(opts.outDir); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			if !utils.DirExists(args[0]) {
				return renderOne(cmd, a, opts, args[0], query)
			}
			files, err := utils.ListImageFiles(args[0])
			if err != nil {
				return fmt.Errorf("list %s: %w", args[0], err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no images found in %s", args[0])
			}
			var failed int
			for _, f := range files {
				if err := renderOne(cmd, a, opts, f, query); err != nil {
					printWarning(cmd.OutOrStdout(), "%s: %v", f, err)
					failed++
				}
			}
			printKeyValue(cmd.OutOrStdout(), "rendered", fmt.Sprintf("%d of %d", len(files)-failed, len(files)))
			if failed == len(files) {
				return fmt.Errorf("all %d images failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: jpg, png or webp")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "JPEG/WebP quality (1-100)")
	cmd.Flags().BoolVar(&opts.lossless, "lossless", false, "lossless WebP output")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "also write the source with the crop drawn on it")
	return cmd
}

func renderOne(cmd *cobra.Command, a *app, opts renderOpts, input, query string) error {
	cfg := a.cfg
	prog := newProgress(loggerFromContext(cmd.Context()))
	out, err := a.layout.ProcessFile(cmd.Context(), input, query)
	if err != nil {
		return err
	}

	format := firstNonEmpty(opts.format, out.Instructions.Format, cfg.Output.Format)
	quality := cfg.Output.Quality
	if out.Instructions.Quality != 0 {
		quality = out.Instructions.Quality
	}
	if opts.quality != 0 {
		quality = opts.quality
	}

	path := utils.GenerateOutputFilename(input, opts.outDir, cfg.Output.Suffix, format)
	if err := processing.SaveImage(out.Image, path, format, quality, opts.lossless || cfg.Output.Lossless); err != nil {
		return err
	}
	prog.done("rendered " + input)

	w := cmd.OutOrStdout()
	for _, warn := range out.Warnings {
		printWarning(w, "%s", warn)
	}
	if out.Focus != nil && out.Focus.Found() {
		printKeyValue(w, "subject", fmt.Sprintf("%s (%.2f)", out.Focus.Primary.Label, out.Focus.Primary.Confidence))
	}
	printKeyValue(w, "canvas", out.Plan.Canvas)
	printFile(w, path, fileSize(path))

	if opts.debug {
		dbg := utils.GenerateOutputFilename(input, opts.outDir, cfg.Output.Suffix+"_debug", "png")
		overlay := processing.CreateDebugOverlay(out.Source.Image, out.Ideal, out.Plan)
		if err := processing.SaveImage(overlay, dbg, "png", 0, false); err != nil {
			return err
		}
		printFile(w, dbg, fileSize(dbg))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return utils.FormatFileSize(info.Size())
}
