// Goobox Installer - setup wizard and installer daemon for Goobox sync.
package main

import (
	"os"

	"github.com/goobox/sync-installer/internal/cli"
	"github.com/goobox/sync-installer/internal/version"
)

func main() {
	cli.Version = version.Version
	cli.BuildTime = version.BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
