package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/endpoint"
	"github.com/uno-framework/uno/plugin"
	"github.com/uno-framework/uno/ulog"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the uno HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveConfigPath != "" {
			config.TomlFile = serveConfigPath
		}
		if err := config.Setup(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		host := plugin.NewHost()
		if dir := config.Cfg.Plugin.ManifestDir; dir != "" {
			if err := host.ApplyManifests(ctx, dir); err != nil {
				ulog.Warn().Err(err).Str("dir", dir).Msg("plugin manifests not applied")
			}
			if err := host.WatchManifests(ctx, dir); err != nil {
				ulog.Warn().Err(err).Str("dir", dir).Msg("plugin manifest watch unavailable")
			}
		}

		rds, _ := config.GetRdsClientByName("default")
		return endpoint.NewServer(rds).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to uno.toml")
	rootCmd.AddCommand(serveCmd)
}
