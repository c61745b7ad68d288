package main

import (
	"os"

	"github.com/mbolis/surveyflow/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
