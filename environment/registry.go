package environment

import (
	"sort"
	"sync"
)

// Factory builds an environment from a decoded document.
type Factory func(doc *Document) (Environment, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("rubin", newRubin, "RubinEnvironment")
	Register("generic", newGeneric, "GenericEnvironment")
}

// Register makes an environment kind available under name and any aliases.
// Registering a name twice replaces the earlier factory.
func Register(name string, factory Factory, aliases ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
	for _, alias := range aliases {
		registry[alias] = factory
	}
}

// Kinds returns every registered kind name and alias, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, configErrorf("cls", "unknown environment kind %q", name)
	}
	return factory, nil
}

func newRubin(doc *Document) (Environment, error) {
	return standardKind(doc, Defaults{
		Kind:               "rubin",
		DefaultMetapackage: "lsst_distrib",
		DefaultTag:         "current",
		BranchPrefix:       "tickets/",
		Shell:              "/bin/bash",
	})
}

func newGeneric(doc *Document) (Environment, error) {
	return standardKind(doc, Defaults{
		Kind:         "generic",
		DefaultTag:   "current",
		BranchPrefix: "tickets/",
		Shell:        "/bin/bash",
	})
}

func standardKind(doc *Document, defaults Defaults) (Environment, error) {
	env, err := NewStandard(doc, defaults)
	if err != nil {
		return nil, err
	}
	return env, nil
}
