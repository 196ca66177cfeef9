package main

import (
	"os"

	"github.com/supporttools/GoPGVault/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
