package main

import (
	"fmt"
	"os"

	"evilanalysis/src/ui"
)

func main() {
	if err := ui.RunEvilAnalysis(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
