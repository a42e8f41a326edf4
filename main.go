package main

import (
	"os"

	"github.com/hireround/interview-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
