package main

import (
	"os"

	"github.com/watzon/healthcheck/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
