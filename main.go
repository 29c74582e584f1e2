package main

import (
	"os"

	"github.com/mpdriver/mpdriver/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
