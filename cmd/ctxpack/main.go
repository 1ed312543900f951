// Ctxpack assembles redacted, token-bounded bundles of source context for a
// project.
//
// Usage:
//
//	# Bundle the current project, printing JSON
//	ctxpack bundle src/handler.go
//
//	# Serve bundles for one project over HTTP
//	ctxpack serve --root /srv/project
package main

import (
	"os"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
