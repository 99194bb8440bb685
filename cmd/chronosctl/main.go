package main

import (
	"fmt"
	"os"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chronosctl:", err)
		os.Exit(1)
	}
}
