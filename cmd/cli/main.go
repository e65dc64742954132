// Package main is the entry point for followctl, the terminal client of the
// FollowWise API.
package main

import (
	"os"

	"github.com/xavierca1/followwise/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
