package core

import (
	"fmt"
	"sort"
	"sync"
)

// ViewInfo describes a list view for navigation and the dashboard.
type ViewInfo struct {
	Key         string `json:"key"`
	Group       string `json:"group"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var (
	registry   = make(map[string]ViewInfo)
	registryMu sync.RWMutex
)

// Register adds a view to the registry.
// Panics if a view with the same key is already registered.
func Register(info ViewInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[info.Key]; exists {
		panic(fmt.Sprintf("view already registered: %s", info.Key))
	}
	registry[info.Key] = info
}

// Get returns a view by key.
// Returns false if not found.
func Get(key string) (ViewInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	info, ok := registry[key]
	return info, ok
}

// All returns all registered views.
// Sorted by group then by key for consistent ordering.
func All() []ViewInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ViewInfo, 0, len(registry))
	for _, info := range registry {
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// ByGroup returns all views for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []ViewInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ViewInfo
	for _, info := range registry {
		if info.Group == group {
			result = append(result, info)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, info := range registry {
		seen[info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// ViewCount returns the number of registered views.
func ViewCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered views.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ViewInfo)
}
