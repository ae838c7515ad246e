package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Dest0re/backend-school2022/internal/api"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	debug bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Starts the catalog HTTP server and blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable gin debug mode")

	return cmd
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	if !flags.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	return withDeps(func(d *Deps) error {
		router := api.NewRouter(api.Deps{
			Nodes:  d.Nodes,
			Sales:  d.Sales,
			Import: d.Imports,
			Logger: d.Logger,
		})

		srv := &http.Server{
			Addr:    d.Config.Server.Addr(),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		d.Logger.Info("server listening", "addr", srv.Addr)

		select {
		case <-cmd.Context().Done():
			d.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})
}
