package status

import (
	"slices"
	"strings"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// unrankedPriority is used for UNKNOWN and any label missing from the table, so they sort last
const unrankedPriority = 8

var priorities = map[model.StatusLabel]int{
	model.StatusBuilding: 1,
	model.StatusFailure:  2,
	model.StatusUnstable: 3,
	model.StatusAborted:  4,
	model.StatusSuccess:  5,
	model.StatusNotBuilt: 6,
	model.StatusDisabled: 7,
}

// Priority returns the rank of a label, lower ranks are shown first. Lookup is case-insensitive.
func Priority(label string) int {
	if p, ok := priorities[model.StatusLabel(strings.ToUpper(label))]; ok {
		return p
	}
	return unrankedPriority
}

// Compare orders two job statuses by failure priority
func Compare(a, b model.JobStatus) int {
	return Priority(a.Status) - Priority(b.Status)
}

// SortByPriority stable-sorts statuses in place so jobs with equal rank keep their source order
func SortByPriority(statuses []model.JobStatus) {
	slices.SortStableFunc(statuses, Compare)
}
