package main

import "github.com/oshokin/wake-engine/cmd/wake-ctl/cmd"

func main() {
	cmd.Execute()
}
