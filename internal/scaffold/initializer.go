package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a default trialrun.yml and the data directory into dir.
// If force is true an existing trialrun.yml is replaced; recorded data is never touched.
func Initialize(dir string, force bool) error {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return err
		}
	} else if err := handleForce(dir); err != nil {
		return err
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, config.Default().OutputDir), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles(dir)
}

func handleForce(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		printer.Warning("Removing existing %s...\n", config.DefaultPath)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
		}
	}
	return nil
}

func getTemplateFiles(dir string) ([]FileInfo, error) {
	content, err := templatesFS.ReadFile("templates/trialrun.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", config.DefaultPath, err)
	}
	return []FileInfo{{
		Path:        filepath.Join(dir, config.DefaultPath),
		Content:     content,
		Permissions: 0644,
	}}, nil
}

// validateCreatedFiles loads the written configuration through the normal
// loader, so a template that drifts from the config schema fails here.
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Success("Initialized trialrun project\n")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", config.DefaultPath)
	printer.Printf("  ✓ %s/\n", config.Default().OutputDir)
	printer.Println("\nNext steps:")
	printer.Printf("  1. Adjust timings and keys in %s\n", config.DefaultPath)
	printer.Println("  2. Try a session with 'trialrun run dmts --develop'")
	printer.Println("  3. Set develop_mode: false before testing participants")
}
