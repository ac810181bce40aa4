// Package main provides the CLI entrypoint for displayctl.
package main

func main() {
	Execute()
}
