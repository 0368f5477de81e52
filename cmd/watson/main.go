// Package main is the entry point for the watson CLI.
package main

import "github.com/watson-developer-cloud/go-sdk/internal/cli"

func main() {
	cli.Execute()
}
