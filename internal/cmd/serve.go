package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/server"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		addr     string
		tls      bool
		dumpHTTP bool
	)

	cmd := cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API serving editor sessions.",
		Long: `Start the HTTP API serving editor sessions.

Every session is an independent editor with its own undo history and
render pipeline. Sessions are persisted in the configured store and
restored on demand after a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("")
			if err != nil {
				return err
			}
			defer log.Flush()

			if cmd.Flags().Changed("address") {
				cfg.ServerAddress = addr
			}
			if cmd.Flags().Changed("tls") {
				cfg.ServerTLSEnabled = tls
			}
			if cmd.Flags().Changed("dump-http") {
				cfg.ServerDumpHTTP = dumpHTTP
			}

			r, err := newRenderer(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			factory := func(ctx context.Context, id string) *editor.Editor {
				opts := append(editorOptions(cfg, st, logger), editor.WithID(id))
				return editor.New(ctx, r, opts...)
			}

			srv, err := server.New(
				&server.Config{
					Address:        cfg.ServerAddress,
					CertFile:       cfg.ServerTLSCertFile,
					KeyFile:        cfg.ServerTLSKeyFile,
					TLSEnabled:     cfg.ServerTLSEnabled,
					AllowedOrigins: cfg.ServerAllowedOrigins,
					MaxSessions:    cfg.ServerMaxSessions,
					DumpHTTP:       cfg.ServerDumpHTTP,
					DumpOutput:     cmd.ErrOrStderr(),
				},
				factory,
				st,
				logger,
			)
			if err != nil {
				return err
			}

			logger.Info("started listening", zap.String("addr", srv.Addr()))
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s\n", srv.Addr())

			g, ctx := errgroup.WithContext(ctx)
			g.Go(srv.Serve)
			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "address", "a", "", "Address to create unix (unix:///path/to/socket) or IP socket (localhost:7863). Overrides server.address.")
	cmd.Flags().BoolVar(&tls, "tls", false, "Serve HTTPS. A self-signed certificate is generated when none exists.")
	cmd.Flags().BoolVar(&dumpHTTP, "dump-http", false, "Dump requests and responses to stderr.")

	return &cmd
}
