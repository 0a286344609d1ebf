// Command tracker maintains a ranked snapshot of the top holders of one SPL
// token and a classified log of their buy, sell and transfer activity.
//
//	tracker serve    run the scheduler, live feed and HTTP surface
//	tracker refresh  run one refresh cycle (and optionally a monitor pass)
//	tracker migrate  apply database migrations
package main

import (
	"os"
)

func main() {
	// Load .env file if exists
	loadEnvFile(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
