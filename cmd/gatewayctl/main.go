// Command gatewayctl runs gateway operations from the command line, either
// in process or against a running gateway.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
