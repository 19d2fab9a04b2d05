// Command tomasim runs a program through the Tomasulo scheduler and reports
// commit statistics.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/archlab/tomasulo/timing/latency"
	"github.com/archlab/tomasulo/timing/rob"
	"github.com/archlab/tomasulo/timing/tomasulo"
)

var (
	configPath  = flag.String("config", "", "Path to simulator configuration JSON file")
	timingPath  = flag.String("timing", "", "Path to timing configuration JSON file (overrides -config's timing section)")
	maxCycles   = flag.Uint64("max-cycles", 100000, "Give up and report a timeout past this many cycles")
	verbose     = flag.Bool("v", false, "Print the pipeline display stage of every program instruction each cycle")
	directIndex = flag.Bool("direct-index", false, "Treat every BEQ immediate as a direct instruction index, never a byte offset")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomasim [options] <program.tasm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	lines, err := readProgramLines(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading program: %v\n", err)
		os.Exit(1)
	}

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *directIndex {
		config.BranchTargetDivideBy4IfMultiple = false
	}

	sim := tomasulo.New(nil, tomasulo.WithConfig(config))
	if err := sim.LoadProgram(lines); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding program: %v\n", err)
		os.Exit(1)
	}

	run(sim, programPath)
}

// loadConfig builds the simulator configuration from -config and -timing,
// falling back to spec defaults for whatever neither flag names.
func loadConfig() (*tomasulo.Config, error) {
	config := tomasulo.DefaultConfig()
	if *configPath != "" {
		loaded, err := tomasulo.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if *timingPath != "" {
		timing, err := latency.LoadConfig(*timingPath)
		if err != nil {
			return nil, fmt.Errorf("loading timing config: %w", err)
		}
		config.Timing = timing
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// readProgramLines reads a program file, cutting each line at its first
// '#' to drop comments. Blank lines are kept, so decoder line numbers
// match the file; the decoder itself skips them.
func readProgramLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// run ticks the simulator to completion (or to -max-cycles) and prints a
// commit report.
func run(sim *tomasulo.Simulator, programPath string) {
	for sim.StatsSnapshot().Cycle < *maxCycles && !sim.Halted() {
		sim.Tick()
		if *verbose {
			printTrace(sim)
		}
	}

	stats := sim.StatsSnapshot()

	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	if !sim.Halted() {
		fmt.Printf("Status: did not halt within %d cycles\n", *maxCycles)
	} else if err := sim.Err(); err != nil {
		fmt.Printf("Status: halted with error: %v\n", err)
	} else {
		fmt.Printf("Status: halted cleanly\n")
	}

	fmt.Printf("Total instructions: %d\n", stats.TotalInstructions)
	fmt.Printf("Cycles: %d\n", stats.Cycle)
	fmt.Printf("Committed: %d\n", stats.Committed)
	fmt.Printf("Stalls: %d\n", stats.Stalls)
	fmt.Printf("Mispredictions: %d\n", stats.Mispredictions)
	fmt.Printf("IPC: %.3f\n", stats.IPC)

	regs := sim.Registers()
	fmt.Printf("\nRegisters:\n")
	for i, v := range regs {
		fmt.Printf("  R%-2d = %d\n", i, v)
	}
}

var stageNames = map[rob.Stage]string{
	rob.StageIF:      "IF",
	rob.StageID:      "ID",
	rob.StageEX:      "EX",
	rob.StageMEM:     "MEM",
	rob.StageWB:      "WB",
	rob.StageCommit:  "C",
	rob.StageFlushed: "X",
}

// printTrace prints the display stage of every instruction in the program,
// for -v debugging of stall and flush behavior.
func printTrace(sim *tomasulo.Simulator) {
	stats := sim.StatsSnapshot()
	fmt.Printf("cycle %d:", stats.Cycle)
	for i := 0; i < stats.TotalInstructions; i++ {
		fmt.Printf(" [%d:%s]", i, stageNames[sim.DisplayStage(i)])
	}
	fmt.Printf("\n")
}
