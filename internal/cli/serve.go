package cli

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/image-layout/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, sourceDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plans, diagrams and rendered images over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if sourceDir != "" {
				a.cfg.Server.SourceDir = sourceDir
			}
			srv := server.New(a.layout, loggerFromContext(cmd.Context()))
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "directory served under /image/ (default from config)")
	return cmd
}
