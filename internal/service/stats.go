package service

import "davinci-allocation/internal/domain"

// Statistics dashboard summary of the allocation set.
type Statistics struct {
	TotalAllocations       int            `json:"total_allocations"`
	PendingAllocations     int            `json:"pending_allocations"`
	InProgressAllocations  int            `json:"in_progress_allocations"`
	CompletedAllocations   int            `json:"completed_allocations"`
	AvgCompletionTimeHours float64        `json:"avg_completion_time_hours"`
	SubjectsCount          map[string]int `json:"subjects_count"`
}

// ComputeStatistics reduces the allocation set. The average covers every allocation with both a
// created and a completed time. The subject histogram counts every entry of every allocation's
// subjects, so a split parent and its children are both counted.
func ComputeStatistics(all []domain.Allocation) Statistics {
	stats := Statistics{
		TotalAllocations: len(all),
		SubjectsCount:    map[string]int{},
	}

	var totalHours float64
	var completions int
	for _, a := range all {
		switch a.Status {
		case domain.StatusPending:
			stats.PendingAllocations++
		case domain.StatusInProgress:
			stats.InProgressAllocations++
		case domain.StatusCompleted:
			stats.CompletedAllocations++
		}

		if a.DateCreated != nil && a.DateCompleted != nil {
			totalHours += a.DateCompleted.Sub(*a.DateCreated).Hours()
			completions++
		}

		for _, subject := range a.Subjects {
			stats.SubjectsCount[subject]++
		}
	}

	if completions > 0 {
		stats.AvgCompletionTimeHours = totalHours / float64(completions)
	}
	return stats
}
