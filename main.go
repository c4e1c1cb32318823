package main

import (
	"os"

	"github.com/royalerun/royale/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
