// Package main is the entry point for the guestbook command.
// Its sole responsibility is running the cobra command tree; wiring lives in
// internal/cli.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // CLUB_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/hansonjake/valleyclub-guest-checkin/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
