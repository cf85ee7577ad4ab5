// Package main implements the relay server, which runs messaging campaigns
// as independently controllable background tasks, plus its operator
// commands.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
