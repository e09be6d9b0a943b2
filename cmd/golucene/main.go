// Command golucene maintains and queries an index directory.
package main

import (
	"os"

	"github.com/navychen2003/javen-sub011/cmd/golucene/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
