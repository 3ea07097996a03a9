package scripts

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/podmill/podmill-go/internal/generator/sources"
)

// LoadedScript represents a script that was loaded and registered.
type LoadedScript struct {
	Manifest *ScriptManifest
	Runtime  *ScriptRuntime
	Path     string
}

// ScriptManager loads script sources from a directory and registers
// them with the source registry.
type ScriptManager struct {
	scriptsDir string
	scripts    map[string]*LoadedScript
	failed     map[string]string // script directory -> error message
	mu         sync.RWMutex
}

// NewScriptManager creates a new script manager.
func NewScriptManager(scriptsDir string) *ScriptManager {
	return &ScriptManager{
		scriptsDir: scriptsDir,
		scripts:    make(map[string]*LoadedScript),
		failed:     make(map[string]string),
	}
}

// LoadAll walks the scripts directory, loads every valid script and
// registers each as a content source. When two directories declare the
// same script ID, the one with the newer version wins. Individual
// script failures are logged and skipped; they never abort startup.
func (sm *ScriptManager) LoadAll() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := os.MkdirAll(sm.scriptsDir, 0755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}

	entries, err := os.ReadDir(sm.scriptsDir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	// First pass: collect manifests, keeping the newest version per ID.
	type candidate struct {
		manifest *ScriptManifest
		path     string
	}
	candidates := make(map[string]candidate)
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}

		scriptPath := filepath.Join(sm.scriptsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(scriptPath, "script.json")); os.IsNotExist(err) {
			log.Printf("Skipping %s: no script.json found", entry.Name())
			continue
		}

		manifest, err := LoadManifest(scriptPath)
		if err != nil {
			log.Printf("Failed to load manifest for script %s: %v", entry.Name(), err)
			sm.failed[scriptPath] = err.Error()
			continue
		}

		if err := ValidateAPIVersion(manifest.APIVersion); err != nil {
			log.Printf("Skipping script %s: %v", entry.Name(), err)
			sm.failed[scriptPath] = err.Error()
			continue
		}

		if existing, ok := candidates[manifest.ID]; ok {
			cmp, err := CompareVersions(manifest.Version, existing.manifest.Version)
			if err != nil || cmp <= 0 {
				log.Printf("Skipping script %s: ID '%s' already provided by a newer or equal version", entry.Name(), manifest.ID)
				continue
			}
			log.Printf("Script %s replaces an older version of '%s'", entry.Name(), manifest.ID)
		}
		candidates[manifest.ID] = candidate{manifest: manifest, path: scriptPath}
	}

	// Second pass: instantiate runtimes and register sources.
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := candidates[id]
		if _, taken := sources.Get(id); taken {
			// Built-in sources register before scripts load.
			log.Printf("Skipping script at %s: source ID '%s' is already registered", c.path, id)
			sm.failed[c.path] = fmt.Sprintf("source ID '%s' is already registered", id)
			continue
		}
		runtime, err := NewScriptRuntime(c.manifest, c.path)
		if err != nil {
			log.Printf("Failed to load script %s: %v", c.manifest.ID, err)
			sm.failed[c.path] = err.Error()
			continue
		}

		sources.Register(NewAdapter(runtime))
		sm.scripts[c.manifest.ID] = &LoadedScript{
			Manifest: c.manifest,
			Runtime:  runtime,
			Path:     c.path,
		}
		delete(sm.failed, c.path)
	}

	log.Printf("Loaded %d script source(s)", len(sm.scripts))
	return nil
}

// LoadedScripts returns the loaded scripts keyed by ID.
func (sm *ScriptManager) LoadedScripts() map[string]*LoadedScript {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make(map[string]*LoadedScript, len(sm.scripts))
	for id, s := range sm.scripts {
		out[id] = s
	}
	return out
}

// Failed returns load errors keyed by script directory.
func (sm *ScriptManager) Failed() map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make(map[string]string, len(sm.failed))
	for path, msg := range sm.failed {
		out[path] = msg
	}
	return out
}
