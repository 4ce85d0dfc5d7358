// Command buzzdeasm renders a .bo bytecode container (with its
// optional .bdbg debug sidecar) back into .basm source text, per §6's
// "deasm <in.bo> <in.bdbg> <out.basm>" command-line surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/asm"
	"github.com/buzzswarm/buzzvm/bytecode"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	root := &cobra.Command{
		Use:           "buzzdeasm <in.bo> <in.bdbg> <out.basm>",
		Short:         "Disassemble a Buzz .bo/.bdbg pair back into .basm source",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return disassemble(logger, args[0], args[1], args[2])
		},
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "buzzdeasm:", err)
		if _, ok := err.(*asm.Error); ok {
			return 2
		}
		return 1
	}
	return 0
}

func disassemble(logger *zap.Logger, boPath, bdbgPath, outPath string) error {
	bo, err := os.Open(boPath)
	if err != nil {
		return err
	}
	defer bo.Close()
	blob, err := bytecode.ReadBlob(bo)
	if err != nil {
		return err
	}

	// Debug info is optional, per §4.E; a missing/unreadable sidecar
	// just yields an empty DebugMap rather than a hard failure.
	debug := &bytecode.DebugMap{}
	if bdbgFile, err := os.Open(bdbgPath); err == nil {
		defer bdbgFile.Close()
		if dm, err := bytecode.ReadDebugMap(bdbgFile); err == nil {
			debug = dm
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := asm.Disassemble(blob, debug, out); err != nil {
		return err
	}

	logger.Info("disassembled",
		zap.String("bytecode", boPath),
		zap.Int("strings", len(blob.Strings)),
		zap.Int("code_bytes", blob.Size()),
	)
	return nil
}
