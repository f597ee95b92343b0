package main

import (
	"fmt"
	"os"

	"github.com/rony4d/go-relay-accord/cmd/relayd/launcher"
)

func main() {

	// Hand the full argument list to the launcher; it blocks until the node stops
	if err := launcher.Launch(os.Args); err != nil {

		// Report the issue so the operator sees it
		fmt.Fprintln(os.Stderr, "Error:", err)

		// Exit with a non-zero status code to indicate failure
		os.Exit(1)
	}

}
