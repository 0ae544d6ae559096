package initcmd

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

// Embedded template names.
const (
	configTemplate    = "config.yaml"
	envTemplate       = "env.example"
	gitignoreTemplate = "gitignore"
)

//go:embed templates/*
var templateFS embed.FS

// Templates lists the embedded template names in directory order.
func Templates() ([]string, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ReadTemplate returns the content of the named template. Unknown names wrap
// fs.ErrNotExist.
func ReadTemplate(name string) (string, error) {
	data, err := templateFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return string(data), nil
}

// MustReadTemplate is ReadTemplate for the names compiled into this package.
// It panics on a missing template.
func MustReadTemplate(name string) string {
	content, err := ReadTemplate(name)
	if err != nil {
		panic(err)
	}
	return content
}
