package plan

import (
	"reflect"
	"testing"
)

// TestBuildLayers tests layering across representative plan shapes.
func TestBuildLayers(t *testing.T) {
	tests := []struct {
		name  string
		tasks []TaskSpec
		want  []Layer
	}{
		{
			name: "two researchers then synthesizer",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher"},
				{Index: 1, Role: "researcher"},
				{Index: 2, Role: "synthesizer", DependsOn: []int{0, 1}},
			},
			want: []Layer{{0, 1}, {2}},
		},
		{
			name: "synthesizer auto-fix creates second layer",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher"},
				{Index: 1, Role: "synthesizer"},
			},
			want: []Layer{{0}, {1}},
		},
		{
			name: "single task",
			tasks: []TaskSpec{
				{Index: 0, Role: "analyzer"},
			},
			want: []Layer{{0}},
		},
		{
			name: "out-of-range dep pruned into first layer",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher"},
				{Index: 1, Role: "analyzer", DependsOn: []int{99}},
			},
			want: []Layer{{0, 1}},
		},
		{
			name: "cycle degrades to sequential",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher", DependsOn: []int{1}},
				{Index: 1, Role: "analyzer", DependsOn: []int{0}},
			},
			want: []Layer{{0}, {1}},
		},
		{
			name: "diamond",
			tasks: []TaskSpec{
				{Index: 0, Role: "planner"},
				{Index: 1, Role: "researcher", DependsOn: []int{0}},
				{Index: 2, Role: "coder", DependsOn: []int{0}},
				{Index: 3, Role: "synthesizer", DependsOn: []int{1, 2}},
			},
			want: []Layer{{0}, {1, 2}, {3}},
		},
		{
			name:  "empty plan",
			tasks: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildLayers(tt.tasks)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildLayers() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuildLayersCompleteness verifies every input index appears in exactly
// one layer, including for adversarial cyclic inputs.
func TestBuildLayersCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		tasks []TaskSpec
	}{
		{
			name: "clean DAG",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher"},
				{Index: 1, Role: "analyzer", DependsOn: []int{0}},
				{Index: 2, Role: "critic", DependsOn: []int{0}},
				{Index: 3, Role: "synthesizer", DependsOn: []int{1, 2}},
			},
		},
		{
			name: "full cycle",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher", DependsOn: []int{4}},
				{Index: 1, Role: "analyzer", DependsOn: []int{0}},
				{Index: 2, Role: "critic", DependsOn: []int{1}},
				{Index: 3, Role: "coder", DependsOn: []int{2}},
				{Index: 4, Role: "writer", DependsOn: []int{3}},
			},
		},
		{
			name: "garbage everywhere",
			tasks: []TaskSpec{
				{Index: 0, Role: "researcher", DependsOn: []int{0, -7, 100}},
				{Index: 1, Role: "analyzer", DependsOn: []int{1, 1, 1}},
				{Index: 2, Role: "synthesizer", DependsOn: []int{99}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers := BuildLayers(tt.tasks)

			seen := make(map[int]int)
			for _, layer := range layers {
				for _, idx := range layer {
					seen[idx]++
				}
			}
			if len(seen) != len(tt.tasks) {
				t.Fatalf("layers cover %d tasks, want %d: %v", len(seen), len(tt.tasks), layers)
			}
			for idx, count := range seen {
				if count != 1 {
					t.Errorf("task %d placed %d times", idx, count)
				}
				if idx < 0 || idx >= len(tt.tasks) {
					t.Errorf("unknown task index %d in layers", idx)
				}
			}
		})
	}
}

// TestBuildLayersOrdering verifies that every validated dependency lives in
// a strictly earlier layer than its dependent.
func TestBuildLayersOrdering(t *testing.T) {
	tasks := []TaskSpec{
		{Index: 0, Role: "planner"},
		{Index: 1, Role: "researcher", DependsOn: []int{0}},
		{Index: 2, Role: "researcher", DependsOn: []int{0}},
		{Index: 3, Role: "analyzer", DependsOn: []int{1, 2}},
		{Index: 4, Role: "critic", DependsOn: []int{3}},
		{Index: 5, Role: "synthesizer"},
	}

	graph := BuildGraph(tasks)
	layers := LayersFromGraph(graph, len(tasks))

	layerOf := make(map[int]int)
	for num, layer := range layers {
		for _, idx := range layer {
			layerOf[idx] = num
		}
	}

	for idx, deps := range graph {
		for _, d := range deps {
			if layerOf[d] >= layerOf[idx] {
				t.Errorf("task %d (layer %d) depends on task %d (layer %d), want strictly earlier",
					idx, layerOf[idx], d, layerOf[d])
			}
		}
	}
}

// TestLayersFromGraphCyclicInput verifies the last-resort degradation when
// a cyclic graph reaches the layering stage directly.
func TestLayersFromGraphCyclicInput(t *testing.T) {
	graph := Graph{0: {1}, 1: {0}, 2: {}}
	got := LayersFromGraph(graph, 3)
	want := []Layer{{0}, {1}, {2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LayersFromGraph(cyclic) = %v, want sequential %v", got, want)
	}
}
