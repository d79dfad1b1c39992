package main

import (
	"os"

	"flyable/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
