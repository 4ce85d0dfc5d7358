// Command buzzasm assembles a .basm source listing into a .bo
// bytecode container and its companion .bdbg debug sidecar, per §6's
// "asm <in.basm> <out.bo> <out.bdbg>" command-line surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/asm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	root := &cobra.Command{
		Use:           "buzzasm <in.basm> <out.bo> <out.bdbg>",
		Short:         "Assemble a Buzz .basm source listing into a .bo/.bdbg pair",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return assemble(logger, args[0], args[1], args[2])
		},
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		if ae, ok := err.(*asm.Error); ok {
			fmt.Fprintln(os.Stderr, ae.Error())
			return 2
		}
		fmt.Fprintln(os.Stderr, "buzzasm:", err)
		return 1
	}
	return 0
}

func assemble(logger *zap.Logger, inPath, boPath, bdbgPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	result, err := asm.Assemble(in, inPath)
	if err != nil {
		return err
	}

	bo, err := os.Create(boPath)
	if err != nil {
		return err
	}
	defer bo.Close()
	if _, err := result.Blob.WriteTo(bo); err != nil {
		return err
	}

	bdbg, err := os.Create(bdbgPath)
	if err != nil {
		return err
	}
	defer bdbg.Close()
	if _, err := result.Debug.WriteTo(bdbg); err != nil {
		return err
	}

	logger.Info("assembled",
		zap.String("source", inPath),
		zap.Int("strings", len(result.Blob.Strings)),
		zap.Int("code_bytes", result.Blob.Size()),
		zap.Int("debug_records", len(result.Debug.Records)),
	)
	return nil
}
