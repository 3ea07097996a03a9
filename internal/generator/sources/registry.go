package sources

import (
	"fmt"
	"sort"

	"github.com/podmill/podmill-go/internal/models"
)

var registry = make(map[string]models.Source)

// Register adds a new source to the registry. It's called at startup.
func Register(s models.Source) {
	info := s.Info()
	if _, exists := registry[info.ID]; exists {
		// Panic is appropriate here as it's a developer error during setup.
		panic(fmt.Sprintf("source with ID '%s' is already registered", info.ID))
	}
	registry[info.ID] = s
}

// Get returns a source by its ID.
func Get(id string) (models.Source, bool) {
	s, ok := registry[id]
	return s, ok
}

// GetAll returns information for all registered sources, sorted by ID.
func GetAll() []models.SourceInfo {
	var infos []models.SourceInfo
	for _, s := range registry {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// UnregisterAll empties the registry so tests can start from a clean
// state.
func UnregisterAll() {
	registry = make(map[string]models.Source)
}
