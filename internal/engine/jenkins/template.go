package jenkins

import (
	_ "embed"
	"os"
)

//go:embed templates/config.xml
var defaultTemplate string

// TemplateSource supplies the job definition document.
// The document is opaque to the executor and passed through untouched.
type TemplateSource interface {
	Load() (string, error)
}

// FileTemplate reads the job definition from disk on every Load
type FileTemplate string

// Load reads the template file
func (f FileTemplate) Load() (string, error) {
	data, err := os.ReadFile(string(f)) //nolint:gosec // Operator-supplied path
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StaticTemplate is an in-memory job definition
type StaticTemplate string

// Load returns the template
func (s StaticTemplate) Load() (string, error) {
	return string(s), nil
}

// DefaultTemplate returns the bundled job definition
func DefaultTemplate() TemplateSource {
	return StaticTemplate(defaultTemplate)
}

// NewTemplateSource returns a FileTemplate for path, or the bundled template when path is empty
func NewTemplateSource(path string) TemplateSource {
	if path == "" {
		return DefaultTemplate()
	}
	return FileTemplate(path)
}
