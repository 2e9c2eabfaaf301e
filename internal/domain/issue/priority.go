package issue

import "strings"

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var priorityOrder = map[string]int{
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// NormalizePriority maps a raw priority to its canonical name and sort order.
// Unknown or empty values fall back to medium.
func NormalizePriority(raw string) (string, int) {
	p := strings.ToLower(strings.TrimSpace(raw))
	if order, ok := priorityOrder[p]; ok {
		return p, order
	}
	return PriorityMedium, priorityOrder[PriorityMedium]
}

// PriorityOrder returns the sort order of a known priority.
func PriorityOrder(p string) (int, bool) {
	order, ok := priorityOrder[p]
	return order, ok
}
