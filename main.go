package main

import (
	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/cli"
)

func main() {
	capture.RegisterDefaultBackends()
	cli.Execute()
}
