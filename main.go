package main

import (
	"os"

	"github.com/comunidade-central/accessctl/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
