package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestAssembleWritesBoAndBdbg(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.basm")
	if err := os.WriteFile(src, []byte("!0\npushi 41\npushi 1\nadd\ndone\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	boPath := filepath.Join(dir, "prog.bo")
	bdbgPath := filepath.Join(dir, "prog.bdbg")

	logger := zap.NewNop()
	if err := assemble(logger, src, boPath, bdbgPath); err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	bo, err := os.ReadFile(boPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(bo) == 0 {
		t.Fatal("expected non-empty .bo output")
	}
	if _, err := os.Stat(bdbgPath); err != nil {
		t.Fatalf("expected .bdbg output: %v", err)
	}
}

func TestAssembleUnknownOpcodeExitsTwo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.basm")
	if err := os.WriteFile(src, []byte("frobnicate\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code := run([]string{src, filepath.Join(dir, "out.bo"), filepath.Join(dir, "out.bdbg")})
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestAssembleMissingInputExitsOne(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{filepath.Join(dir, "missing.basm"), filepath.Join(dir, "out.bo"), filepath.Join(dir, "out.bdbg")})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
