package main

import (
	"os"

	"github.com/yuzushioh/filesafe/internal/filesafecli"
)

func main() {
	if err := filesafecli.NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
