// Package scaffold writes the starter configuration files for a new
// pfpod deployment.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes pfpod.yml and .env.example into dir.
// If force is true, an existing pfpod.yml is replaced.
func Initialize(dir string, force bool) error {
	target := filepath.Join(dir, "pfpod.yml")

	if _, err := os.Stat(target); err == nil {
		if !force {
			return fmt.Errorf("pfpod.yml already exists (use --force to replace it)")
		}
		fmt.Println("⚠️  Replacing existing pfpod.yml...")
	}

	files, err := templateFiles(dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedConfig(target)
}

func templateFiles(dir string) ([]FileInfo, error) {
	files := []FileInfo{}

	cfgYml, err := templatesFS.ReadFile("templates/pfpod.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read pfpod.yml template: %w", err)
	}
	files = append(files, FileInfo{
		Path:        filepath.Join(dir, "pfpod.yml"),
		Content:     cfgYml,
		Permissions: 0644,
	})

	envExample, err := templatesFS.ReadFile("templates/env.example.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read env.example template: %w", err)
	}
	files = append(files, FileInfo{
		Path:        filepath.Join(dir, ".env.example"),
		Content:     envExample,
		Permissions: 0644,
	})

	return files, nil
}

// validateCreatedConfig parses the file we just wrote; a broken
// template should fail init, not the next install.
func validateCreatedConfig(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read created pfpod.yml: %w", err)
	}

	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("created pfpod.yml is not valid YAML: %w", err)
	}

	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Initialized pfpod deployment config!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ pfpod.yml")
	fmt.Println("  ✓ .env.example")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Adjust pfpod.yml for your pod (workspace path, port)")
	fmt.Println("  2. Run 'pfpod install' to provision the workspace")
	fmt.Println("  3. Run 'pfpod launch' to start the web UI")
}
