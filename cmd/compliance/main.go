package main

import "compliance/internal/cli"

func main() {
	cli.Execute()
}
