// Command l0learn fits L0-regularized regression paths from CSV files.
//
//	l0learn fit --x X.csv --y y.csv --penalty L0L2 --out path.l0a
//	l0learn cv --x X.csv --y y.csv --nfolds 5 --seed 1
//	l0learn inspect path.l0a --point 3
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
