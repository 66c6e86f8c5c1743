package main

import (
	"github.com/yutopp/compilet/cmd/compilet/cli"
)

func main() {
	cli.Execute()
}
