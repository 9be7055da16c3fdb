package main

import (
	"os"

	"github.com/snarg/meeting-intel/internal/cli"
	"github.com/snarg/meeting-intel/internal/present"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		present.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
