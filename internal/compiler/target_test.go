package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lhaig/blockc/internal/codegen"
)

const handlerDoc = `
devices:
  - {name: temp, type: int}
main:
  - var: x
    type: int
    checked: true
  - set: {ref: x}
    to: {add: [{ref: x}, 1]}
handlers:
  - when: {interrupt: button}
    do:
      - print: {device: temp}
`

func TestEmitDir(t *testing.T) {
	res := CompileSource([]byte(handlerDoc), DefaultOptions())
	if res.Failed() {
		t.Fatalf("Expected no errors, got:\n%s", res.Diagnostics.Format("test"))
	}

	dir := t.TempDir()
	written, err := EmitDir(res, dir)
	if err != nil {
		t.Fatalf("EmitDir failed: %v", err)
	}
	if len(written) != 3 {
		t.Errorf("Expected 3 files, got %v", written)
	}

	main, err := os.ReadFile(filepath.Join(dir, MainFile))
	if err != nil {
		t.Fatalf("Failed to read main: %v", err)
	}
	if !strings.Contains(string(main), `#include "devices.h"`) {
		t.Errorf("Expected devices header include, got:\n%s", main)
	}

	header, err := os.ReadFile(filepath.Join(dir, codegen.HeaderName))
	if err != nil {
		t.Fatalf("Failed to read header: %v", err)
	}
	for _, want := range []string{"extern int temp;", "void __isr_button();"} {
		if !strings.Contains(string(header), want) {
			t.Errorf("Expected %q in header:\n%s", want, header)
		}
	}

	lib, err := os.ReadFile(filepath.Join(dir, "lib", "RangeChecks.h"))
	if err != nil {
		t.Fatalf("Failed to read library: %v", err)
	}
	if !strings.Contains(string(lib), "namespace lellib") {
		t.Error("Expected bundled range checks")
	}
}

func TestEmitDirFailed(t *testing.T) {
	res := CompileSource([]byte("main:\n  - print: {ref: nope}\n"), DefaultOptions())
	if _, err := EmitDir(res, t.TempDir()); err == nil {
		t.Error("Expected error for failed compilation")
	}
}

func TestBuildRejectsDevices(t *testing.T) {
	res := CompileSource([]byte(handlerDoc), DefaultOptions())
	err := Build(res, filepath.Join(t.TempDir(), "prog"))
	if err == nil || !strings.Contains(err.Error(), "board runtime") {
		t.Errorf("Expected board runtime error, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	if _, err := exec.LookPath("c++"); err != nil {
		t.Skip("c++ not available")
	}

	res := CompileSource([]byte(divisionDoc), DefaultOptions())
	out := filepath.Join(t.TempDir(), "prog")
	if err := Build(res, out); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected binary at %s: %v", out, err)
	}
}
