package main

import (
	"fmt"
	"os"

	"github.com/genricoloni/nowshowing/internal/config"
)

func main() {
	_ = config.LoadEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
