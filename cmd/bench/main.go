// Command bench runs a synthetic merge/evict/get workload against the entity
// cache and exposes the reported metrics over Prometheus and, optionally, pprof.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
