// Command pandda runs the provisioning back office.
package main

import (
	"fmt"
	"os"

	_ "time/tzdata" // due dates are checked in the configured IANA zone
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
