package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/progress"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/visibility"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskInput struct {
	Title       string
	Description string
	CompanyID   string
	AssignedTo  string
	StartDate   time.Time
	EndDate     time.Time
	Priority    models.Priority
	Tags        []string
}

// TaskPatch edits task-level fields. Status and Progress are explicit
// overrides; nothing here triggers a progress recompute.
type TaskPatch struct {
	Title       *string
	Description *string
	AssignedTo  *string
	StartDate   *time.Time
	EndDate     *time.Time
	Priority    *models.Priority
	Tags        *[]string
	Status      *models.TaskStatus
	Progress    *int
}

type SubTaskInput struct {
	Description string
	HoursSpent  float64
	Remarks     string
	Status      models.TaskStatus
}

type SubTaskPatch struct {
	Description *string
	HoursSpent  *float64
	Remarks     *string
	Status      *models.TaskStatus
}

type TaskService struct {
	db       *gorm.DB
	log      *slog.Logger
	notifier Notifier
	now      clock
}

func NewTaskService(db *gorm.DB, log *slog.Logger, notifier Notifier) *TaskService {
	return &TaskService{db: db, log: log, notifier: orNop(notifier), now: time.Now}
}

func nameColumns(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "email")
}

func canManageTasks(caller types.Identity) bool {
	return caller.Role == models.RoleAdmin || caller.Role == models.RoleManager
}

func (s *TaskService) Create(ctx context.Context, caller types.Identity, in TaskInput) (models.Task, error) {
	if !canManageTasks(caller) {
		return models.Task{}, types.Errorf(types.ErrForbidden, "Not authorized to create tasks")
	}

	scope, err := visibility.For(caller)
	if err != nil {
		return models.Task{}, err
	}

	companyID := strings.TrimSpace(in.CompanyID)
	if companyID == "" {
		companyID = caller.CompanyID
	}
	if companyID == "" {
		return models.Task{}, types.Errorf(types.ErrValidation, "Company is required")
	}
	if !scope.CoversCompany(companyID) {
		return models.Task{}, types.Errorf(types.ErrNotFound, "Company not found")
	}

	var company models.Company
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", companyID).First(&company).Error; err != nil {
		return models.Task{}, lookupErr(err, "Company")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, types.Errorf(types.ErrValidation, "Title is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return models.Task{}, types.Errorf(types.ErrValidation, "Start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return models.Task{}, types.Errorf(types.ErrValidation, "End date cannot be before start date")
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, types.Errorf(types.ErrValidation, "Invalid priority %q", priority)
	}

	if err := s.checkAssignee(ctx, in.AssignedTo, companyID); err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		CompanyID:    companyID,
		AssignedToID: in.AssignedTo,
		AssignedByID: caller.ID,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Priority:     priority,
		Status:       models.StatusPending,
		Progress:     0,
		Tags:         normalizeTags(in.Tags),
		Days:         datatypes.NewJSONType([]models.Day{}),
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return models.Task{}, types.Internal("create task", err)
	}

	s.log.Info("task created", "task_id", task.ID, "company_id", companyID, "assigned_to", task.AssignedToID)
	s.notifier.CompanyChanged(companyID)

	return task, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, userID, companyID string) error {
	if strings.TrimSpace(userID) == "" {
		return types.Errorf(types.ErrValidation, "Assigned user is required")
	}

	var assignee models.User
	if err := s.db.WithContext(ctx).Select("id", "company_id", "is_active").Where("id = ?", userID).First(&assignee).Error; err != nil {
		return lookupErr(err, "Assigned user")
	}

	if !assignee.BelongsTo(companyID) {
		return types.Errorf(types.ErrValidation, "Assigned user does not belong to this company")
	}

	if !assignee.IsActive {
		return types.Errorf(types.ErrValidation, "Assigned user is not active")
	}

	return nil
}

func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}

	return datatypes.JSONSlice[string](out)
}

func (s *TaskService) List(ctx context.Context, caller types.Identity, f visibility.TaskFilter) ([]models.Task, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return nil, err
	}

	if f.Status != "" && !f.Status.Valid() {
		return nil, types.Errorf(types.ErrValidation, "Invalid status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, types.Errorf(types.ErrValidation, "Invalid priority %q", f.Priority)
	}

	tasks := []models.Task{}

	err = scope.Tasks(s.db.WithContext(ctx).Model(&models.Task{}), f).
		Preload("AssignedTo", nameColumns).
		Preload("AssignedBy", nameColumns).
		Order("tasks.created_at DESC").
		Find(&tasks).Error

	if err != nil {
		return nil, types.Internal("list tasks", err)
	}

	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, caller types.Identity, id string) (models.Task, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task

	err = scope.Tasks(s.db.WithContext(ctx).Model(&models.Task{}), visibility.TaskFilter{}).
		Preload("AssignedTo", nameColumns).
		Preload("AssignedBy", nameColumns).
		Where("tasks.id = ?", id).
		First(&task).Error

	if err != nil {
		return models.Task{}, lookupErr(err, "Task")
	}

	return task, nil
}

// Update writes only the task-level columns named in the patch, so it never
// overwrites days written concurrently by sub-task edits.
func (s *TaskService) Update(ctx context.Context, caller types.Identity, id string, patch TaskPatch) (models.Task, error) {
	if !canManageTasks(caller) {
		return models.Task{}, types.Errorf(types.ErrForbidden, "Not authorized to edit this task")
	}

	task, err := s.Get(ctx, caller, id)
	if err != nil {
		return models.Task{}, err
	}

	updates := make(map[string]interface{})

	if v := trimmed(patch.Title); v != nil {
		if *v == "" {
			return models.Task{}, types.Errorf(types.ErrValidation, "Title cannot be empty")
		}
		updates["title"] = *v
	}
	if v := trimmed(patch.Description); v != nil {
		updates["description"] = *v
	}

	start, end := task.StartDate, task.EndDate
	if patch.StartDate != nil {
		start = *patch.StartDate
		updates["start_date"] = start
	}
	if patch.EndDate != nil {
		end = *patch.EndDate
		updates["end_date"] = end
	}
	if end.Before(start) {
		return models.Task{}, types.Errorf(types.ErrValidation, "End date cannot be before start date")
	}

	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return models.Task{}, types.Errorf(types.ErrValidation, "Invalid priority %q", *patch.Priority)
		}
		updates["priority"] = *patch.Priority
	}

	if patch.Tags != nil {
		updates["tags"] = normalizeTags(*patch.Tags)
	}

	if patch.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *patch.AssignedTo, task.CompanyID); err != nil {
			return models.Task{}, err
		}
		updates["assigned_to_id"] = *patch.AssignedTo
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Task{}, types.Errorf(types.ErrValidation, "Invalid status %q", *patch.Status)
		}
		updates["status"] = *patch.Status
	}

	if patch.Progress != nil {
		if *patch.Progress < 0 || *patch.Progress > 100 {
			return models.Task{}, types.Errorf(types.ErrValidation, "Progress must be between 0 and 100")
		}
		updates["progress"] = *patch.Progress
	}

	if len(updates) == 0 {
		return models.Task{}, types.Errorf(types.ErrValidation, "No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return models.Task{}, types.Internal("update task", err)
	}

	s.notifier.CompanyChanged(task.CompanyID)

	return s.Get(ctx, caller, id)
}

func (s *TaskService) Delete(ctx context.Context, caller types.Identity, id string) error {
	if !canManageTasks(caller) {
		return types.Errorf(types.ErrForbidden, "Not authorized to delete this task")
	}

	task, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	// days and sub-tasks live in the row and go with it
	if err := s.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", task.ID).Error; err != nil {
		return types.Internal("delete task", err)
	}

	s.log.Info("task deleted", "task_id", task.ID, "deleted_by", caller.ID)
	s.notifier.CompanyChanged(task.CompanyID)

	return nil
}

// daysMutation edits the days of a locked task. It returns the new days and
// the sub-task the edit touched, or nil when the sub-task is gone.
type daysMutation func(days []models.Day, now time.Time) ([]models.Day, *models.SubTask, error)

// mutateDays loads the task under a row lock, applies fn, recomputes the
// derived progress and status, and writes everything back in one statement
// inside the same transaction.
func (s *TaskService) mutateDays(ctx context.Context, caller types.Identity, taskID string, fn daysMutation) (models.Task, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Model(&models.Task{}).Clauses(clause.Locking{Strength: "UPDATE"})

		if err := scope.Tasks(locked, visibility.TaskFilter{}).Where("tasks.id = ?", taskID).First(&task).Error; err != nil {
			return lookupErr(err, "Task")
		}

		now := s.now()

		days, trigger, err := fn(task.Days.Data(), now)
		if err != nil {
			return err
		}

		task.Days = datatypes.NewJSONType(days)
		progress.Apply(&task, trigger, now)

		err = tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
			"days":       task.Days,
			"progress":   task.Progress,
			"status":     task.Status,
			"updated_at": now,
		}).Error

		if err != nil {
			return types.Internal("save task days", err)
		}

		task.UpdatedAt = now
		return nil
	})

	if err != nil {
		return models.Task{}, err
	}

	s.notifier.CompanyChanged(task.CompanyID)

	return task, nil
}

func validateSubTask(description string, hours float64, status models.TaskStatus) error {
	if strings.TrimSpace(description) == "" {
		return types.Errorf(types.ErrValidation, "Sub-task description is required")
	}
	if hours < 0 {
		return types.Errorf(types.ErrValidation, "Hours spent cannot be negative")
	}
	if !status.Valid() {
		return types.Errorf(types.ErrValidation, "Invalid status %q", status)
	}
	return nil
}

// AddSubTask appends a sub-task to the day for date, creating the day in
// date order when it does not exist yet.
func (s *TaskService) AddSubTask(ctx context.Context, caller types.Identity, taskID string, date time.Time, in SubTaskInput) (models.Task, models.SubTask, error) {
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if err := validateSubTask(in.Description, in.HoursSpent, in.Status); err != nil {
		return models.Task{}, models.SubTask{}, err
	}
	if date.IsZero() {
		return models.Task{}, models.SubTask{}, types.Errorf(types.ErrValidation, "Date is required")
	}

	var addedID string

	task, err := s.mutateDays(ctx, caller, taskID, func(days []models.Day, now time.Time) ([]models.Day, *models.SubTask, error) {
		key := models.DateKey(date)

		i := sort.Search(len(days), func(i int) bool {
			return !models.DateKey(days[i].Date).Before(key)
		})

		if i == len(days) || !models.DateKey(days[i].Date).Equal(key) {
			days = append(days, models.Day{})
			copy(days[i+1:], days[i:])
			days[i] = models.Day{Date: key, SubTasks: []models.SubTask{}}
		}

		st := models.SubTask{
			ID:          uuid.NewString(),
			Description: strings.TrimSpace(in.Description),
			HoursSpent:  in.HoursSpent,
			Remarks:     strings.TrimSpace(in.Remarks),
			Status:      in.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		progress.StampSubTask(&st, now)
		addedID = st.ID

		days[i].SubTasks = append(days[i].SubTasks, st)
		trigger := &days[i].SubTasks[len(days[i].SubTasks)-1]

		return days, trigger, nil
	})

	if err != nil {
		return models.Task{}, models.SubTask{}, err
	}

	days := task.Days.Data()
	d, i, _ := locateSubTask(days, addedID)

	return task, days[d].SubTasks[i], nil
}

func locateSubTask(days []models.Day, id string) (int, int, bool) {
	for d := range days {
		for i := range days[d].SubTasks {
			if days[d].SubTasks[i].ID == id {
				return d, i, true
			}
		}
	}
	return 0, 0, false
}

func (s *TaskService) UpdateSubTask(ctx context.Context, caller types.Identity, taskID, subTaskID string, patch SubTaskPatch) (models.Task, models.SubTask, error) {
	if patch.Description == nil && patch.HoursSpent == nil && patch.Remarks == nil && patch.Status == nil {
		return models.Task{}, models.SubTask{}, types.Errorf(types.ErrValidation, "No valid fields to update")
	}

	task, err := s.mutateDays(ctx, caller, taskID, func(days []models.Day, now time.Time) ([]models.Day, *models.SubTask, error) {
		d, i, ok := locateSubTask(days, subTaskID)
		if !ok {
			return nil, nil, types.Errorf(types.ErrNotFound, "Sub-task not found")
		}

		st := days[d].SubTasks[i]

		if v := trimmed(patch.Description); v != nil {
			st.Description = *v
		}
		if patch.HoursSpent != nil {
			st.HoursSpent = *patch.HoursSpent
		}
		if v := trimmed(patch.Remarks); v != nil {
			st.Remarks = *v
		}
		if patch.Status != nil {
			st.Status = *patch.Status
		}

		if err := validateSubTask(st.Description, st.HoursSpent, st.Status); err != nil {
			return nil, nil, err
		}

		st.UpdatedAt = now
		progress.StampSubTask(&st, now)

		days[d].SubTasks[i] = st
		return days, &days[d].SubTasks[i], nil
	})

	if err != nil {
		return models.Task{}, models.SubTask{}, err
	}

	days := task.Days.Data()
	d, i, _ := locateSubTask(days, subTaskID)

	return task, days[d].SubTasks[i], nil
}

// DeleteSubTask removes a sub-task; a day left without sub-tasks is dropped.
func (s *TaskService) DeleteSubTask(ctx context.Context, caller types.Identity, taskID, subTaskID string) (models.Task, error) {
	return s.mutateDays(ctx, caller, taskID, func(days []models.Day, now time.Time) ([]models.Day, *models.SubTask, error) {
		d, i, ok := locateSubTask(days, subTaskID)
		if !ok {
			return nil, nil, types.Errorf(types.ErrNotFound, "Sub-task not found")
		}

		days[d].SubTasks = append(days[d].SubTasks[:i], days[d].SubTasks[i+1:]...)

		if len(days[d].SubTasks) == 0 {
			days = append(days[:d], days[d+1:]...)
		}

		return days, nil, nil
	})
}
