package main

import (
	"os"

	"github.com/codalotl/pydocify/internal/cli"
)

func main() {
	code, _ := cli.Run(os.Args, nil)
	os.Exit(code)
}
