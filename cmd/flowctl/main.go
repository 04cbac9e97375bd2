// flowctl is the command-line front end for the workflow engine: it
// validates and runs workflow definition files against the built-in node
// handlers.
package main

import "github.com/flowmaestro/flowmaestro-go/cmd/flowctl/cmd"

func main() {
	cmd.Execute()
}
