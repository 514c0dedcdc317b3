// Command deposition converts station wet-deposition tables into total
// inorganic nitrogen deposition and compares weekly, monthly and annual
// roll-ups.
package main

import (
	"os"
)

// Version is set by build flags.
var Version = "dev"

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
