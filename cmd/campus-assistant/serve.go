package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/campus-assistant/internal/api"
	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/ashureev/campus-assistant/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr    string
		origins string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat UI backed by this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.GatewayAddr
			}

			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			ctrl := chatstate.New(a.sessioner(sess), a.logger)
			h := api.NewHandler(ctrl, sess, a.client, splitOrigins(origins), a.logger)

			srv := &http.Server{
				Addr:        addr,
				Handler:     api.NewRouter(h, web.SPAHandler()),
				ReadTimeout: 30 * time.Second,
				// WebSocket streams stay open, so no WriteTimeout.
				IdleTimeout: 120 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("Gateway listening", "addr", srv.Addr, "user_id", sess.UserID(), "backend", a.client.BaseURL())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("Shutting down gracefully...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			a.logger.Info("Gateway stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CAMPUS_GATEWAY_ADDR)")
	cmd.Flags().StringVar(&origins, "allowed-origins", "*", "comma-separated origins allowed to call the gateway")
	return cmd
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
