package taskgraph

import (
	"github.com/mitchellh/hashstructure/v2"
)

// Fingerprint hashes the graph's topology: the set of keys and each key's
// declared dependency list. Two graphs with the same keys and edges hash
// equal regardless of insertion order or which results are already
// computed. Useful as a cheap identity for a pipeline shape.
func (g *Graph[O]) Fingerprint() (uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	topology := make(map[string][]string, len(g.nodes))
	for key, node := range g.nodes {
		deps := node.Dependencies()
		// Normalize nil vs empty so the hash only sees edges.
		if len(deps) == 0 {
			topology[key] = nil
			continue
		}
		topology[key] = append([]string(nil), deps...)
	}

	return hashstructure.Hash(topology, hashstructure.FormatV2, nil)
}
