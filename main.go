// Command tomasulo-sim is a cycle-accurate Tomasulo's-algorithm scheduler
// with speculative execution and branch prediction.
//
// For the full CLI, use: go run ./cmd/tomasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("tomasulo-sim - out-of-order pipeline scheduler")
	fmt.Println("")
	fmt.Println("Usage: tomasim [options] <program.tasm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config         Path to simulator configuration JSON file")
	fmt.Println("  -timing         Path to timing configuration JSON file")
	fmt.Println("  -max-cycles     Give up past this many cycles (default 100000)")
	fmt.Println("  -v              Print every instruction's pipeline stage each cycle")
	fmt.Println("  -direct-index   Treat BEQ immediates as direct instruction indices")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/tomasim' instead.")
	}
}
