package contracts

// Role is a task role. A role is held by exactly one address per task.
type Role string

const (
	RoleManager   Role = "MANAGER"
	RoleWorker    Role = "WORKER"
	RoleEvaluator Role = "EVALUATOR"
)

// CanonicalRoleOrder is the order in which signatures over a task change are expected.
var CanonicalRoleOrder = []Role{RoleManager, RoleWorker, RoleEvaluator}

// Valid reports whether r is a known task role.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleWorker, RoleEvaluator:
		return true
	}
	return false
}

// RoleRank returns the position of r in CanonicalRoleOrder, or -1.
func RoleRank(r Role) int {
	for i, c := range CanonicalRoleOrder {
		if c == r {
			return i
		}
	}
	return -1
}
