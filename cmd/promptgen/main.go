package main

import "promptgen/internal/cli"

func main() {
	cli.Execute()
}
