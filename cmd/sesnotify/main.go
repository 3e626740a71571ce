// Package main is the entry point for the sesnotify command.
package main

import "github.com/shineum/sesnotify/internal/cli"

func main() {
	cli.Execute()
}
