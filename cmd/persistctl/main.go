// persistctl runs raw queries and edits preference files through the
// persistgo facade.
package main

import (
	"os"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}
