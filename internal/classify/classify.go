// Package classify implements the classification policy: a fixed total
// order over sensitivity levels and the single access predicate used by
// every enforcement point in the system.
//
// There is deliberately exactly one way to compare a clearance against a
// classification. Call sites must never compare level strings directly.
package classify

// Classification levels, lowest to highest.
const (
	Unclassified = "UNCLASSIFIED"
	Confidential = "CONFIDENTIAL"
	Secret       = "SECRET"
	TopSecret    = "TOP_SECRET"
)

// Principal roles as supplied by the identity collaborator.
const (
	RoleHQ             = "HQ"
	RoleAnalystSOCMINT = "ANALYST_SOCMINT"
	RoleAnalystSIGINT  = "ANALYST_SIGINT"
	RoleAnalystHUMINT  = "ANALYST_HUMINT"
	RoleObserver       = "OBSERVER"
)

var ranks = map[string]int{
	Unclassified: 0,
	Confidential: 1,
	Secret:       2,
	TopSecret:    3,
}

// Rank maps a level label to its position in the total order.
// Unknown labels rank as UNCLASSIFIED: a malformed label can never
// grant access to anything above the floor.
func Rank(level string) int {
	return ranks[level]
}

// Valid reports whether level is one of the four known labels.
func Valid(level string) bool {
	_, ok := ranks[level]
	return ok
}

// CanAccess reports whether a principal with the given clearance may see
// an item at the given classification. Pure function, no failure mode.
func CanAccess(clearance, classification string) bool {
	return Rank(clearance) >= Rank(classification)
}

// Filter returns the subset of items visible to the given clearance.
// The level func extracts each item's classification label.
func Filter[T any](items []T, clearance string, level func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if CanAccess(clearance, level(item)) {
			out = append(out, item)
		}
	}
	return out
}
