// Package namegen produces short human-readable project names of the
// form adjective-animal, used when a project is created without one.
package namegen

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

var adjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "crimson", "eager",
	"fuzzy", "gentle", "golden", "happy", "jolly", "keen", "lively",
	"lucky", "mellow", "nimble", "quiet", "rapid", "shiny", "silent",
	"sleek", "sunny", "swift", "vivid", "wild", "witty", "zesty",
}

var animals = []string{
	"badger", "beaver", "bison", "condor", "coyote", "dolphin",
	"falcon", "ferret", "gecko", "heron", "ibis", "jaguar", "koala",
	"lemur", "lynx", "marmot", "otter", "panda", "parrot", "puffin",
	"raven", "salmon", "tapir", "toucan", "walrus", "wombat", "yak",
}

// Generator hands out project names, avoiding repeats within its own
// lifetime. After the combination space is exhausted, or on repeated
// collisions, it falls back to a timestamp suffix.
type Generator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	used map[string]struct{}
}

// New creates a generator seeded from the clock.
func New() *Generator {
	return &Generator{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		used: make(map[string]struct{}),
	}
}

// Next returns a fresh name.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < 16; attempt++ {
		name := adjectives[g.rng.Intn(len(adjectives))] + "-" + animals[g.rng.Intn(len(animals))]
		if _, taken := g.used[name]; !taken {
			g.used[name] = struct{}{}
			return name
		}
	}
	name := fmt.Sprintf("project-%d", time.Now().UnixNano())
	g.used[name] = struct{}{}
	return name
}

// Valid reports whether a caller-supplied name fits the same shape the
// generator produces: lowercase words joined by hyphens.
func Valid(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, part := range strings.Split(name, "-") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
				return false
			}
		}
	}
	return true
}
