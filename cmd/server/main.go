package main

import (
	"os"

	"spinarena/server/internal/app"
	"spinarena/server/internal/config"
)

func main() {
	if err := app.Main(os.Args[1:]); err != nil {
		config.Exitf("server: %v", err)
	}
}
