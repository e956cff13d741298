package main

import (
	"github.com/pilab-dev/requesttoken/cmd/reqtokenctl/cmd"
)

func main() {
	cmd.Execute()
}
