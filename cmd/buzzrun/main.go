// Command buzzrun executes a .bo bytecode blob to completion, per
// §6's "run [--trace] <prog.bo>" command-line surface. With --trace,
// it dumps VM state before every step instead of running silently to
// DONE/ERROR.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/bytecode"
	"github.com/buzzswarm/buzzvm/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var trace bool
	var robotID uint16

	root := &cobra.Command{
		Use:           "buzzrun <prog.bo>",
		Short:         "Run a Buzz bytecode blob to completion",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := execute(logger, args[0], trace, robotID, os.Stdout)
			if err != nil {
				return err
			}
			if state == vm.Error {
				return fmt.Errorf("program ended in ERROR state")
			}
			return nil
		},
	}
	root.Flags().BoolVar(&trace, "trace", false, "dump VM state before every step")
	root.Flags().Uint16Var(&robotID, "robot-id", 0, "robot id this VM instance represents")
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "buzzrun:", err)
		return 1
	}
	return 0
}

func execute(logger *zap.Logger, boPath string, trace bool, robotID uint16, stdout *os.File) (vm.State, error) {
	f, err := os.Open(boPath)
	if err != nil {
		return vm.Error, err
	}
	defer f.Close()

	blob, err := bytecode.ReadBlob(f)
	if err != nil {
		return vm.Error, err
	}

	m := vm.New(robotID, logger)
	m.Stdout = stdout
	m.Load(blob, nil)

	var state vm.State
	if trace {
		state = m.RunTrace(stdout)
	} else {
		state = m.Run()
	}

	objectsFreed, stringsFreed := m.GC()

	logger.Info("run finished",
		zap.String("bytecode", boPath),
		zap.String("state", state.String()),
		zap.String("error_kind", m.ErrorKind.String()),
		zap.Uint32("pc", m.PC),
		zap.Int("gc_objects_freed", objectsFreed),
		zap.Int("gc_strings_freed", stringsFreed),
	)
	return state, nil
}
