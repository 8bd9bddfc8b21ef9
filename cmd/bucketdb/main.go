// Command bucketdb imports row data and assigns percentile buckets.
package main

import (
	"fmt"
	"os"

	"github.com/rankproc/bucketdb/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
