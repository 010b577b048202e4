// Command wetalk drives the WeTalk authentication flow from the terminal and
// can run the reference auth service locally.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
