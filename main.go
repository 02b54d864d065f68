package main

import (
	"os"

	"github.com/aapatcall/roadassist/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
