package codegen

import (
	"embed"
	"fmt"
)

//go:embed lib/*.h
var libraryFS embed.FS

// Library returns the source of a bundled runtime header by name, without
// the .h extension
func Library(name string) (string, error) {
	data, err := libraryFS.ReadFile("lib/" + name + ".h")
	if err != nil {
		return "", fmt.Errorf("unknown library %q: %w", name, err)
	}
	return string(data), nil
}
