// nebula-upload posts files as multipart form uploads and can run the
// matching receiver.
package main

import (
	"os"

	"github.com/nebula-ui/nebula-upload/internal/cli"
	"github.com/nebula-ui/nebula-upload/internal/version"
)

// Version information, set by ldflags
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
