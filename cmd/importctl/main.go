package main

import (
	"os"

	"github.com/JonMunkholm/portfolio-import/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
