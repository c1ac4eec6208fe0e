// Command radx-ingest drives the parallel extraction engine (spec §4.7)
// against one cohort's raw DICOM root.
package main

import (
	"fmt"
	"os"

	"github.com/codeninja55/go-radx/cmd/radx-ingest/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Run(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
