package main

import "github.com/mvp-joe/harvester/internal/cli"

func main() {
	cli.Execute()
}
