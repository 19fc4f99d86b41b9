package extract

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Extractor)
	mu       sync.RWMutex
)

// Register adds an extractor for its source. Called from init() in the
// sources subpackage; registering the same source twice is a programming
// error.
func Register(e Extractor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[e.Source()]; exists {
		panic(fmt.Sprintf("extractor for source %s already registered", e.Source()))
	}
	registry[e.Source()] = e
}

// Lookup returns the extractor registered for a source.
func Lookup(source string) (Extractor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[source]
	return e, ok
}

// Sources lists the registered source identifiers, sorted.
func Sources() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
