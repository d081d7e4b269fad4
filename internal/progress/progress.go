// Package progress derives a task's progress percentage and status from the
// sub-tasks logged in its days.
package progress

import (
	"time"

	"github.com/monocle-dev/taskflow/internal/models"
)

type Result struct {
	Progress int               `json:"progress"`
	Status   models.TaskStatus `json:"status"`
}

// Percent returns round-half-up(100*part/total), or 0 when total is 0.
func Percent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((200*part + total) / (2 * total))
}

// Compute walks the sub-tasks in day order and derives the task's progress
// and status. now decides which days count as past for the delayed rule.
func Compute(days []models.Day, now time.Time) Result {
	today := models.DateKey(now)

	var total, completed int64
	var started, overdue bool

	for _, day := range days {
		past := models.DateKey(day.Date).Before(today)

		for _, st := range day.SubTasks {
			total++

			switch st.Status {
			case models.StatusCompleted:
				completed++
				started = true
			case models.StatusInProgress:
				started = true
			case models.StatusDelayed:
				if past {
					overdue = true
				}
			}
		}
	}

	if total == 0 {
		return Result{Progress: 0, Status: models.StatusPending}
	}

	res := Result{Progress: Percent(completed, total)}

	switch {
	case res.Progress == 100:
		res.Status = models.StatusCompleted
	case overdue:
		res.Status = models.StatusDelayed
	case started:
		res.Status = models.StatusInProgress
	default:
		res.Status = models.StatusPending
	}

	return res
}

// Apply recomputes task.Progress and task.Status from task.Days. When the
// task moves into completed, trigger (the sub-task whose write caused the
// recompute, may be nil) is stamped with now unless it already carries a
// completion time. The caller must store trigger back into the days.
func Apply(task *models.Task, trigger *models.SubTask, now time.Time) Result {
	previous := task.Status
	res := Compute(task.Days.Data(), now)

	task.Progress = res.Progress
	task.Status = res.Status

	if res.Status == models.StatusCompleted && previous != models.StatusCompleted &&
		trigger != nil && trigger.CompletedAt == nil {
		stamp := now
		trigger.CompletedAt = &stamp
	}

	return res
}

// StampSubTask keeps CompletedAt in line with the sub-task's status.
func StampSubTask(st *models.SubTask, now time.Time) {
	if st.Status == models.StatusCompleted {
		if st.CompletedAt == nil {
			stamp := now
			st.CompletedAt = &stamp
		}
		return
	}
	st.CompletedAt = nil
}
