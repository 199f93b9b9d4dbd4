package main

import (
	"os"

	"github.com/solatis/callwarden/cmd/callwarden/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
