package main

import (
	"os"

	"github.com/xiaot623/gogo/insights/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
