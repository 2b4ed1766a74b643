package main

import (
	"os"

	"github.com/uno-framework/uno/ulog"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		ulog.Error().Err(err).Msg("uno exited with error")
		os.Exit(1)
	}
}
