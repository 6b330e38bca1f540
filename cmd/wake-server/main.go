package main

import "github.com/oshokin/wake-engine/cmd/wake-server/cmd"

func main() {
	cmd.Execute()
}
