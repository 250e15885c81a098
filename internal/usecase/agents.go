package usecase

import "github.com/user/clone-service/internal/entity"

// DetermineAgentCount picks how many section agents cover n screenshots:
// one for n <= 1, two for 2-3, three above that, never more than limit.
func DetermineAgentCount(n, limit int) int {
	k := 3
	switch {
	case n <= 1:
		k = 1
	case n <= 3:
		k = 2
	}
	if limit < 1 {
		limit = 1
	}
	return min(k, limit)
}

// PartitionScreenshots splits shots into k contiguous, near-equal groups.
// Earlier groups take the remainder. The first group is the top agent, the
// last the bottom agent; a single group owns the whole page.
func PartitionScreenshots(shots []entity.Screenshot, k int) []entity.AgentAssignment {
	if k < 1 {
		k = 1
	}
	if len(shots) > 0 && k > len(shots) {
		k = len(shots)
	}
	if k == 1 {
		return []entity.AgentAssignment{{Index: 0, Count: 1, Role: entity.RoleSingle, Screenshots: shots}}
	}

	size, rem := len(shots)/k, len(shots)%k
	out := make([]entity.AgentAssignment, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		n := size
		if i < rem {
			n++
		}
		role := entity.RoleMiddle
		switch i {
		case 0:
			role = entity.RoleTop
		case k - 1:
			role = entity.RoleBottom
		}
		out = append(out, entity.AgentAssignment{
			Index:       i,
			Count:       k,
			Role:        role,
			Screenshots: shots[start : start+n],
			FirstShot:   start,
		})
		start += n
	}
	return out
}
