package main

import (
	"fmt"
	"os"

	"github.com/oleg578/linecsv/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "recsv:", err)
		os.Exit(1)
	}
}
