package plan

import (
	"log"
	"sort"
)

// Layer is a maximal batch of task indices whose prerequisites all live in
// strictly earlier layers. Tasks within a layer are mutually independent
// and safe to run concurrently. In-layer order is ascending original index
// for deterministic fixtures and rendering.
type Layer []int

// BuildLayers validates the task list and groups it into ordered parallel
// execution layers. Total over any input: structural defects degrade per
// the graph builder's rules and never surface as errors.
func BuildLayers(tasks []TaskSpec) []Layer {
	return LayersFromGraph(BuildGraph(tasks), len(tasks))
}

// LayersFromGraph runs Kahn's layered variant over an already-validated
// graph. O(N + E) via in-degree counters.
func LayersFromGraph(graph Graph, n int) []Layer {
	if n == 0 {
		return nil
	}

	inDegree := make([]int, n)
	dependents := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		deps := graph[i]
		inDegree[i] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], i)
		}
	}

	layers := make([]Layer, 0, n)
	remaining := n
	placed := make([]bool, n)

	for remaining > 0 {
		var layer Layer
		for i := 0; i < n; i++ {
			if !placed[i] && inDegree[i] == 0 {
				layer = append(layer, i)
			}
		}

		if len(layer) == 0 {
			// A cycle slipped past validation. Should not happen; degrade
			// to strict sequential order rather than spinning.
			log.Printf("ERROR: no placeable tasks with %d unplaced, falling back to sequential layers", remaining)
			return sequentialLayers(n)
		}

		sort.Ints(layer)
		for _, i := range layer {
			placed[i] = true
			remaining--
			for _, dep := range dependents[i] {
				inDegree[dep]--
			}
		}
		layers = append(layers, layer)
	}

	return layers
}

// sequentialLayers places every task in its own layer, in plan order.
func sequentialLayers(n int) []Layer {
	layers := make([]Layer, n)
	for i := 0; i < n; i++ {
		layers[i] = Layer{i}
	}
	return layers
}
