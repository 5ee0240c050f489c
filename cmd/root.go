// Package cmd defines and implements the CLI commands for the electionguide executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/config"
	"github.com/JakeFAU/wi-election-guide/internal/lookup"
	"github.com/JakeFAU/wi-election-guide/internal/server"
	"github.com/JakeFAU/wi-election-guide/internal/snapshot"
)

var cfgFile string

type appKeyType string

const appKey appKeyType = "app"

// annotationSessions marks commands that need the session store connected.
const annotationSessions = "sessions"

// App is the application surface the commands use.
type App interface {
	Logger() *zap.Logger
	Serve(ctx context.Context) error
	Lookup(ctx context.Context, address string) (*lookup.Result, error)
	Snapshot(ctx context.Context) (snapshot.Manifest, error)
	Close(ctx context.Context)
}

type serverApp struct {
	app *server.App
}

func (a serverApp) Logger() *zap.Logger             { return a.app.Logger() }
func (a serverApp) Serve(ctx context.Context) error { return a.app.Run(ctx) }
func (a serverApp) Close(ctx context.Context)       { a.app.Close(ctx) }

func (a serverApp) Lookup(ctx context.Context, address string) (*lookup.Result, error) {
	return a.app.Lookup().Lookup(ctx, address)
}

func (a serverApp) Snapshot(ctx context.Context) (snapshot.Manifest, error) {
	exporter, err := a.app.Snapshot(ctx)
	if err != nil {
		return snapshot.Manifest{}, err
	}
	return exporter.Run(ctx)
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg *config.Config, withSessions bool) (App, error) {
	app, err := server.Build(ctx, cfg, withSessions)
	if err != nil {
		return nil, err
	}
	return serverApp{app: app}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "electionguide",
		Short: "Wisconsin election guide backend.",
		Long: `electionguide serves the Wisconsin election guide API. It resolves
addresses to legislative districts, reads candidate and race sheets, scrapes
related news and exports static snapshots of the guide data.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			_, withSessions := cmd.Annotations[annotationSessions]
			appInstance, err := newApp(cmd.Context(), &cfg, withSessions)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and environment only when empty)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newSnapshotCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		zap.L().Error("command execution failed", zap.Error(err))
		os.Exit(1)
	}
}
