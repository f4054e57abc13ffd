package domain

import "sort"

// WorkloadSnapshot maps every eligible agent of a tenant to its open-ticket count.
type WorkloadSnapshot map[string]int

// Empty reports whether the snapshot holds no agents.
func (w WorkloadSnapshot) Empty() bool {
	return len(w) == 0
}

// AgentIDs returns the agent IDs in ascending order.
func (w WorkloadSnapshot) AgentIDs() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Total returns the number of open tickets across all agents.
func (w WorkloadSnapshot) Total() int {
	total := 0
	for _, n := range w {
		total += n
	}
	return total
}
