package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/monocle-dev/taskflow/internal/utils"
	"github.com/monocle-dev/taskflow/internal/visibility"
)

type CreateTaskRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	CompanyID   string          `json:"company"`
	AssignedTo  string          `json:"assignedTo" binding:"required"`
	StartDate   string          `json:"startDate" binding:"required"`
	EndDate     string          `json:"endDate" binding:"required"`
	Priority    models.Priority `json:"priority"`
	Tags        []string        `json:"tags"`
}

type UpdateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	AssignedTo  *string            `json:"assignedTo"`
	StartDate   *string            `json:"startDate"`
	EndDate     *string            `json:"endDate"`
	Priority    *models.Priority   `json:"priority"`
	Tags        *[]string          `json:"tags"`
	Status      *models.TaskStatus `json:"status"`
	Progress    *int               `json:"progress"`
}

type SubTaskRequest struct {
	Description string            `json:"description" binding:"required"`
	HoursSpent  float64           `json:"hoursSpent"`
	Remarks     string            `json:"remarks"`
	Status      models.TaskStatus `json:"status"`
}

type UpdateSubTaskRequest struct {
	Description *string            `json:"description"`
	HoursSpent  *float64           `json:"hoursSpent"`
	Remarks     *string            `json:"remarks"`
	Status      *models.TaskStatus `json:"status"`
}

type TaskHandler struct {
	tasks *services.TaskService
	log   *slog.Logger
}

func NewTaskHandler(tasks *services.TaskService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

func optionalDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}

	t, err := utils.ParseDate(*value)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (h *TaskHandler) Create(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	start, err := utils.ParseDate(body.StartDate)
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	end, err := utils.ParseDate(body.EndDate)
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	task, err := h.tasks.Create(ctx.Request.Context(), caller, services.TaskInput{
		Title:       body.Title,
		Description: body.Description,
		CompanyID:   body.CompanyID,
		AssignedTo:  body.AssignedTo,
		StartDate:   start,
		EndDate:     end,
		Priority:    body.Priority,
		Tags:        body.Tags,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

func (h *TaskHandler) List(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(ctx.Request.Context(), caller, visibility.TaskFilter{
		Search:     ctx.Query("search"),
		Status:     models.TaskStatus(ctx.Query("status")),
		Priority:   models.Priority(ctx.Query("priority")),
		CompanyID:  ctx.Query("company"),
		AssignedTo: ctx.Query("assignedTo"),
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "count": len(tasks), "tasks": tasks})
}

func (h *TaskHandler) Get(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(ctx.Request.Context(), caller, id)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *TaskHandler) Update(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var body UpdateTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	start, err := optionalDate(body.StartDate)
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	end, err := optionalDate(body.EndDate)
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	task, err := h.tasks.Update(ctx.Request.Context(), caller, id, services.TaskPatch{
		Title:       body.Title,
		Description: body.Description,
		AssignedTo:  body.AssignedTo,
		StartDate:   start,
		EndDate:     end,
		Priority:    body.Priority,
		Tags:        body.Tags,
		Status:      body.Status,
		Progress:    body.Progress,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *TaskHandler) Delete(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(ctx.Request.Context(), caller, id); err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

func (h *TaskHandler) AddSubTask(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	date, err := utils.ParseDate(ctx.Param("date"))
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	var body SubTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	task, subTask, err := h.tasks.AddSubTask(ctx.Request.Context(), caller, id, date, services.SubTaskInput{
		Description: body.Description,
		HoursSpent:  body.HoursSpent,
		Remarks:     body.Remarks,
		Status:      body.Status,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "task": task, "subTask": subTask})
}

func (h *TaskHandler) UpdateSubTask(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	subTaskID, ok := pathID(ctx, "subtask_id")
	if !ok {
		return
	}

	var body UpdateSubTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	task, subTask, err := h.tasks.UpdateSubTask(ctx.Request.Context(), caller, id, subTaskID, services.SubTaskPatch{
		Description: body.Description,
		HoursSpent:  body.HoursSpent,
		Remarks:     body.Remarks,
		Status:      body.Status,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "task": task, "subTask": subTask})
}

func (h *TaskHandler) DeleteSubTask(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	subTaskID, ok := pathID(ctx, "subtask_id")
	if !ok {
		return
	}

	task, err := h.tasks.DeleteSubTask(ctx.Request.Context(), caller, id, subTaskID)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}
