// Command hdcore is a demonstration host that walks a single device
// factor source through caching, on-demand derivation, account
// creation, and signature collection end to end.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
