package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"digistore/internal/infra/db"
	"digistore/internal/server"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var autoMigrate bool

// digistore serve: HTTPサーバー起動
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if autoMigrate {
			if err := db.Migrate(a.db); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, cleanup, err := a.deps(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		e, err := server.New(a.cfg, deps, a.log)
		if err != nil {
			return err
		}
		return server.Run(ctx, e, ":"+a.cfg.Port, a.log)
	},
}

// digistore routes: 登録済みルートの一覧
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		deps, cleanup, err := a.deps(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		e, err := server.New(a.cfg, deps, a.log)
		if err != nil {
			return err
		}

		routes := e.Routes()
		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH")
		for _, r := range routes {
			if r.Method == echo.RouteNotFound {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Path)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run migrations before serving")
}
