package main

import "github.com/mchmarny/rocplot/pkg/cli"

func main() {
	cli.Execute()
}
