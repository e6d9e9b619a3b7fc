// Command server runs the skilltree API and its maintenance commands.
//
//	server                 serve HTTP (same as "server serve")
//	server reset [--date]  run the daily challenge reset now
//	server catalog         print the loaded catalog
//
// Every command takes --config pointing at a TOML file; environment
// variables override it (see internal/config).
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
