package scaffold

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/manifest"
)

const templatesDir = "scaffolds/extension"

// Data holds the template variables available to scaffold templates.
type Data struct {
	Name        string // Package name, e.g. "weather-feed" or "@acme/weather-feed"
	Description string // Human-readable description
	Version     string // Semver, e.g. "0.1.0"
	CLI         string // Host binary name used in generated usage examples
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewData creates scaffold data for the given package name. An empty
// description gets a serviceable default.
func NewData(name, description string) *Data {
	if description == "" {
		description = fmt.Sprintf("A %s extension", branding.DisplayName())
	}
	return &Data{
		Name:        name,
		Description: description,
		Version:     "0.1.0",
		CLI:         branding.CLIName(),
	}
}

// Generate creates a new extension skeleton from the embedded templates.
func Generate(data *Data, outputDir string) (*Result, error) {
	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("reading embedded templates: %w", err)
	}

	// Create output directory.
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Check for existing files to prevent accidental overwrites.
	existingEntries, err := os.ReadDir(outputDir)
	if err == nil && len(existingEntries) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{
		OutputDir: outputDir,
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplPath := filepath.Join(templatesDir, entry.Name())
		tmplBytes, err := fs.ReadFile(scaffoldFS, tmplPath)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
		}

		// Strip .tmpl extension for the output filename.
		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		outPath := filepath.Join(outputDir, outName)

		tmpl, err := template.New(entry.Name()).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}

		result.Files = append(result.Files, outName)
	}

	// Validate the generated manifest against the package schema.
	manifestFile := filepath.Join(outputDir, "package.json")
	if _, err := os.Stat(manifestFile); err == nil {
		valResult, valErr := manifest.ValidateFile(manifestFile)
		if valErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Could not validate manifest: %v", valErr))
		} else if !valResult.Valid {
			for _, issue := range valResult.Issues {
				msg := issue.Message
				if issue.Path != "" {
					msg = issue.Path + ": " + msg
				}
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}

	return result, nil
}
