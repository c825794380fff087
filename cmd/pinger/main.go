// pinger keeps a fleet of reward-node accounts online and claims their
// rewards.
package main

import (
	"os"

	"jordanella.com/reward-pinger/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
