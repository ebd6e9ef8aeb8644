// synclog ingests the per-owner sync logs written by a replicated database
// server, classifies every line and stores the results so that no file
// content is ever ingested twice.
package main

import (
	"os"

	"github.com/ccollicutt/synclog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
