package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, dialRedis).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
