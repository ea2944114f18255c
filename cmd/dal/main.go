package main

import (
	"os"

	"github.com/msto63/dal/cmd/dal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
