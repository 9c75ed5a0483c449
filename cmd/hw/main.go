package main

import (
	"os"

	"github.com/ledgist/hivewallet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
