package plan

// TaskSpec is one proposed unit of work from the planner.
// Index is the task's position in the originating plan and is the identity
// used by dependency references.
type TaskSpec struct {
	Index     int    `json:"-"`
	Role      string `json:"role"`
	Task      string `json:"task"`
	DependsOn []int  `json:"depends_on"`
}

// ExecutionPlan is an ordered list of tasks plus nesting metadata.
// It is owned by a single orchestration call and must not be mutated
// once layering begins.
type ExecutionPlan struct {
	Description string
	Tasks       []TaskSpec
	Depth       int // Nesting level (0 = root)
}

// Roles returns the role tag of every task, in plan order.
func (p *ExecutionPlan) Roles() []string {
	roles := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		roles[i] = t.Role
	}
	return roles
}
