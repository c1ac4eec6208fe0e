// Command radx-sort drives the four-step sorting pipeline (spec
// §4.9-§4.12: Checkup, Fingerprint, Classification, Completion) against
// one cohort already populated by radx-ingest.
package main

import (
	"fmt"
	"os"

	"github.com/codeninja55/go-radx/cmd/radx-sort/internal/cli"
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
