package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/asm"
)

func TestDisassembleRoundTripsInstructions(t *testing.T) {
	dir := t.TempDir()
	src := "!0\npushi 41\npushi 1\nadd\ndone\n"

	result, err := asm.Assemble(bytes.NewReader([]byte(src)), "prog.basm")
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	boPath := filepath.Join(dir, "prog.bo")
	bo, err := os.Create(boPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := result.Blob.WriteTo(bo); err != nil {
		t.Fatal(err)
	}
	bo.Close()

	bdbgPath := filepath.Join(dir, "prog.bdbg")
	outPath := filepath.Join(dir, "prog.out.basm")

	logger := zap.NewNop()
	if err := disassemble(logger, boPath, bdbgPath, outPath); err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	for _, want := range []string{"pushi 41", "pushi 1", "add", "done"} {
		if !bytes.Contains([]byte(got), []byte(want)) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestDisassembleMissingBoExitsOne(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{
		filepath.Join(dir, "missing.bo"),
		filepath.Join(dir, "missing.bdbg"),
		filepath.Join(dir, "out.basm"),
	})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
