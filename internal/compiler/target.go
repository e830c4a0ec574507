package compiler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lhaig/blockc/internal/codegen"
	"github.com/lhaig/blockc/internal/logger"
)

// MainFile is the name of the generated translation unit
const MainFile = "main.cpp"

// EmitDir writes the generated program into dir: main.cpp, devices.h when
// the program includes it, and every bundled library under lib/. It returns
// the written paths.
func EmitDir(res *Result, dir string) ([]string, error) {
	if res.Failed() {
		return nil, fmt.Errorf("compilation errors:\n%s", res.Diagnostics.Format("input"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(MainFile, res.Main); err != nil {
		return nil, err
	}
	if res.NeedsHeader() {
		if err := write(codegen.HeaderName, res.Header); err != nil {
			return nil, err
		}
	}
	for _, name := range res.Libraries {
		src, err := codegen.Library(name)
		if err != nil {
			return nil, err
		}
		if err := write(filepath.Join("lib", name+".h"), src); err != nil {
			return nil, err
		}
	}
	logger.Info("Wrote program", "dir", dir, "files", len(written))
	return written, nil
}

// NeedsHeader reports whether main.cpp includes the devices header
func (r *Result) NeedsHeader() bool {
	return len(r.Devices) > 0 || len(r.ISRs) > 0
}

// Build emits the program into a temporary directory and compiles it with
// the system C++ compiler. Programs with devices need a board runtime to
// link against and cannot be built this way.
func Build(res *Result, outPath string) error {
	if res.Failed() {
		return fmt.Errorf("compilation errors:\n%s", res.Diagnostics.Format("input"))
	}
	if len(res.Devices) > 0 {
		return fmt.Errorf("program declares %d device(s) and must be linked against a board runtime", len(res.Devices))
	}

	cxx, err := exec.LookPath("c++")
	if err != nil {
		return fmt.Errorf("c++ not found on PATH: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "blockc-build-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if _, err := EmitDir(res, tmpDir); err != nil {
		return err
	}

	outDir := filepath.Dir(outPath)
	if outDir != "." && outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	cmd := exec.Command(cxx, "-std=c++17", "-O2", "-o", absOut, MainFile)
	cmd.Dir = tmpDir
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("c++ build failed: %w", err)
	}
	return nil
}
