package main

import "github.com/tianxiaolong/pytest-auto-api2/apps/cli/cmd"

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
