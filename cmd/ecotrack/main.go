package main

import (
	"fmt"
	"os"

	"github.com/nhle/ecotrack-console/internal/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if source.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "Not signed in or token expired. Run `ecotrack login`.")
		}
		os.Exit(1)
	}
}
