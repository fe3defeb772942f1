package main

import (
	"context"
	"os"
)

func main() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}
