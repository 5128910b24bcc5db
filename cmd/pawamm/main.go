package main

import (
	"os"

	"github.com/paw-chain/pawamm/cmd/pawamm/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
