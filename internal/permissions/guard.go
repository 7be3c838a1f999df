package permissions

// ScopeMember is a membership row of a scope with a single top role
// (OWNER for workspaces, MANAGER for projects).
type ScopeMember interface {
	MemberUserID() uint64
	HoldsTopRole() bool
}

// Blocker names why a role change or removal is refused.
type Blocker string

const (
	BlockerNone            Blocker = ""
	BlockerUnauthenticated Blocker = "UNAUTHENTICATED"
	BlockerSelf            Blocker = "SELF"
	BlockerSoleAuthority   Blocker = "SOLE_AUTHORITY"
)

// Messages shown next to a disabled role or removal control.
const (
	DisabledReasonUnauthenticated = "You must be signed in to change member roles"
	DisabledReasonSelf            = "You cannot change your own role"
	DisabledReasonSoleAuthority   = "The last holder of the top role cannot be demoted or removed"
)

// GuardDecision is the outcome of CheckDemoteOrRemove.
type GuardDecision struct {
	Allowed        bool    `json:"allowed"`
	Blocker        Blocker `json:"blocker,omitempty"`
	DisabledReason string  `json:"disabled_reason,omitempty"`
}

// CheckDemoteOrRemove decides whether actorID may change the role of, or remove, target.
// scope holds every member of the same workspace or project, target included.
func CheckDemoteOrRemove[M ScopeMember](actorID uint64, target M, scope []M) GuardDecision {
	if actorID == 0 {
		return GuardDecision{Blocker: BlockerUnauthenticated, DisabledReason: DisabledReasonUnauthenticated}
	}
	if target.MemberUserID() == actorID {
		return GuardDecision{Blocker: BlockerSelf, DisabledReason: DisabledReasonSelf}
	}
	// A count of zero means the scope list disagrees with target; refuse rather than guess.
	if target.HoldsTopRole() && countTopRole(scope) <= 1 {
		return GuardDecision{Blocker: BlockerSoleAuthority, DisabledReason: DisabledReasonSoleAuthority}
	}
	return GuardDecision{Allowed: true}
}

// CanDemoteOrRemove is CheckDemoteOrRemove reduced to its verdict.
func CanDemoteOrRemove[M ScopeMember](actorID uint64, target M, scope []M) bool {
	return CheckDemoteOrRemove(actorID, target, scope).Allowed
}

func countTopRole[M ScopeMember](scope []M) int {
	count := 0
	for _, m := range scope {
		if m.HoldsTopRole() {
			count++
		}
	}
	return count
}
