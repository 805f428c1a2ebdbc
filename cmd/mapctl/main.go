// Command mapctl is the operator CLI for the world map service: it validates
// a build offline and generates deterministic mock assets.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
