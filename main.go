package main

import (
	"github.com/ProReality/ClassiCubeLauncher/cmd"
)

func main() {
	cmd.Execute()
}
