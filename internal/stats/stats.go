// Package stats builds the per-company dashboard report.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/progress"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const RecentTaskLimit = 5

type RoleCount struct {
	Role  models.Role `json:"role"`
	Count int64       `json:"count"`
}

type RecentTask struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	AssignedTo string            `json:"assignedTo"`
	AssignedBy string            `json:"assignedBy"`
	Status     models.TaskStatus `json:"status"`
	Progress   int               `json:"progress"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type Report struct {
	TotalUsers           int64        `json:"totalUsers"`
	ActiveUsers          int64        `json:"activeUsers"`
	TotalTasks           int64        `json:"totalTasks"`
	CompletedTasks       int64        `json:"completedTasks"`
	PendingTasks         int64        `json:"pendingTasks"`
	InProgressTasks      int64        `json:"inProgressTasks"`
	DelayedTasks         int64        `json:"delayedTasks"`
	CompletionRate       int          `json:"completionRate"`
	UserRoleDistribution []RoleCount  `json:"userRoleDistribution"`
	RecentTasks          []RecentTask `json:"recentTasks"`
}

type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Compute runs every read of the report concurrently and waits for all of
// them. The first failure cancels the rest and fails the whole report.
// Compute does not check that the company exists.
func (a *Aggregator) Compute(ctx context.Context, companyID string) (Report, error) {
	var report Report

	g, ctx := errgroup.WithContext(ctx)

	count := func(label string, dst *int64, model any, query string, args ...any) {
		g.Go(func() error {
			if err := a.db.WithContext(ctx).Model(model).Where(query, args...).Count(dst).Error; err != nil {
				return fmt.Errorf("count %s: %w", label, err)
			}
			return nil
		})
	}

	count("users", &report.TotalUsers, &models.User{}, "company_id = ?", companyID)
	count("active users", &report.ActiveUsers, &models.User{}, "company_id = ? AND is_active = ?", companyID, true)
	count("tasks", &report.TotalTasks, &models.Task{}, "company_id = ?", companyID)
	count("completed tasks", &report.CompletedTasks, &models.Task{}, "company_id = ? AND status = ?", companyID, models.StatusCompleted)
	count("pending tasks", &report.PendingTasks, &models.Task{}, "company_id = ? AND status = ?", companyID, models.StatusPending)
	count("in-progress tasks", &report.InProgressTasks, &models.Task{}, "company_id = ? AND status = ?", companyID, models.StatusInProgress)

	g.Go(func() error {
		var roles []RoleCount

		err := a.db.WithContext(ctx).Model(&models.User{}).
			Select("role, COUNT(*) AS count").
			Where("company_id = ?", companyID).
			Group("role").
			Order("role").
			Scan(&roles).Error

		if err != nil {
			return fmt.Errorf("role distribution: %w", err)
		}

		report.UserRoleDistribution = roles
		return nil
	})

	g.Go(func() error {
		recent, err := a.recentTasks(ctx, companyID)
		if err != nil {
			return fmt.Errorf("recent tasks: %w", err)
		}

		report.RecentTasks = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report.DelayedTasks = report.TotalTasks - (report.CompletedTasks + report.PendingTasks + report.InProgressTasks)
	report.CompletionRate = progress.Percent(report.CompletedTasks, report.TotalTasks)

	if report.UserRoleDistribution == nil {
		report.UserRoleDistribution = []RoleCount{}
	}

	return report, nil
}

func (a *Aggregator) recentTasks(ctx context.Context, companyID string) ([]RecentTask, error) {
	names := func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name")
	}

	var tasks []models.Task

	err := a.db.WithContext(ctx).
		Preload("AssignedTo", names).
		Preload("AssignedBy", names).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(RecentTaskLimit).
		Find(&tasks).Error

	if err != nil {
		return nil, err
	}

	recent := make([]RecentTask, 0, len(tasks))

	for _, task := range tasks {
		item := RecentTask{
			ID:        task.ID,
			Title:     task.Title,
			Status:    task.Status,
			Progress:  task.Progress,
			CreatedAt: task.CreatedAt,
		}

		if task.AssignedTo != nil {
			item.AssignedTo = task.AssignedTo.Name
		}
		if task.AssignedBy != nil {
			item.AssignedBy = task.AssignedBy.Name
		}

		recent = append(recent, item)
	}

	return recent, nil
}
