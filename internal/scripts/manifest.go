package scripts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ScriptManifest represents the script.json structure.
type ScriptManifest struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Description  string                 `json:"description"`
	Author       string                 `json:"author"`
	License      string                 `json:"license"`
	APIVersion   string                 `json:"api_version"`
	EntryPoint   string                 `json:"entry_point"`
	Capabilities map[string]bool        `json:"capabilities"`
	Config       map[string]interface{} `json:"config"`
}

// LoadManifest loads and parses a script.json file.
func LoadManifest(scriptDir string) (*ScriptManifest, error) {
	manifestPath := filepath.Join(scriptDir, "script.json")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script.json: %w", err)
	}

	var manifest ScriptManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse script.json: %w", err)
	}

	// Validate required fields
	if manifest.ID == "" {
		return nil, fmt.Errorf("script.json missing required field: id")
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("script.json missing required field: name")
	}
	if manifest.Version == "" {
		return nil, fmt.Errorf("script.json missing required field: version")
	}
	if !IsValidVersion(manifest.Version) {
		return nil, fmt.Errorf("script.json has invalid version: %s", manifest.Version)
	}
	if manifest.APIVersion == "" {
		return nil, fmt.Errorf("script.json missing required field: api_version")
	}

	// Set defaults
	if manifest.EntryPoint == "" {
		manifest.EntryPoint = "index.js"
	}
	if manifest.Capabilities == nil {
		manifest.Capabilities = make(map[string]bool)
	}

	return &manifest, nil
}
