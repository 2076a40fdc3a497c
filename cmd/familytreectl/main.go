// Command familytreectl runs operational tasks against the family tree
// stores: Postgres migrations and Neo4j schema setup.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
