package orchestrator

import (
	"fmt"
	"strings"
)

// RenderDAG renders the dependency graph as text for operators: one
// block per dependency level, each job with its dependencies and an
// enabled (o) or disabled (x) marker. It fails on an unresolvable graph.
func (o *Orchestrator) RenderDAG() (string, error) {
	levels, err := o.ExecutionOrder()
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Workflow: %s\n", o.name)
	b.WriteString(strings.Repeat("=", 10+len(o.name)) + "\n")

	for i, level := range levels {
		fmt.Fprintf(&b, "\nLevel %d:\n", i)
		for _, jobID := range level {
			job := o.jobs[jobID]
			marker := "o"
			suffix := ""
			if !job.Enabled {
				marker = "x"
				suffix = " [disabled]"
			}
			deps := "none"
			if len(job.Dependencies) > 0 {
				deps = strings.Join(job.Dependencies, ", ")
			}
			fmt.Fprintf(&b, "  [%s] %s (depends on: %s)%s\n", marker, jobID, deps, suffix)
		}
	}
	return b.String(), nil
}
