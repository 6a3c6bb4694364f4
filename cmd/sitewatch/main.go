package main

import "github.com/menta2k/sitewatch/internal/cli"

func main() {
	cli.Execute()
}
