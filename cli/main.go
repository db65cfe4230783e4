package main

import (
	"github.com/BioHazard786/Warpcall/cli/cmd"
	"github.com/BioHazard786/Warpcall/cli/internal/logging"
)

func main() {
	closeLog := logging.Init()
	defer closeLog()
	cmd.Execute()
}
