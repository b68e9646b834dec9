package main

import "github.com/agentic-research/resgrid/cmd"

func main() {
	cmd.Execute()
}
