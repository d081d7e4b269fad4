package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/testutil"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/visibility"
	"gorm.io/gorm"
)

var taskNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func newTaskService(t *testing.T) (*TaskService, *recordingNotifier, tenant, *gorm.DB) {
	t.Helper()

	conn := testutil.NewDB(t)
	ten := seedTenant(t, conn)
	notifier := &recordingNotifier{}

	svc := NewTaskService(conn, discardLogger(), notifier)
	svc.now = func() time.Time { return taskNow }

	return svc, notifier, ten, conn
}

func createTask(t *testing.T, svc *TaskService, caller models.User, assignee string) models.Task {
	t.Helper()

	task, err := svc.Create(context.Background(), testutil.Identity(caller), TaskInput{
		Title:      "Quarterly report",
		AssignedTo: assignee,
		StartDate:  taskNow.AddDate(0, 0, -7),
		EndDate:    taskNow.AddDate(0, 0, 7),
		Tags:       []string{"finance", " finance ", "", "q2"},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	svc, notifier, ten, _ := newTaskService(t)
	task := createTask(t, svc, ten.m1, ten.s1.ID)

	if task.CompanyID != "C1" || task.AssignedByID != ten.m1.ID {
		t.Fatalf("unexpected ownership: %+v", task)
	}
	if task.Status != models.StatusPending || task.Progress != 0 || task.Priority != models.PriorityMedium {
		t.Fatalf("unexpected defaults: status=%s progress=%d priority=%s", task.Status, task.Progress, task.Priority)
	}
	if len(task.Days.Data()) != 0 {
		t.Fatalf("new task has %d days", len(task.Days.Data()))
	}
	if got := []string(task.Tags); len(got) != 2 || got[0] != "finance" || got[1] != "q2" {
		t.Fatalf("tags = %v", got)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.count())
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()

	svc, _, ten, conn := newTaskService(t)
	ctx := context.Background()
	testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "gone"}, Role: models.RoleStaff, CompanyID: testutil.Ptr("C1"), IsActive: false})

	valid := TaskInput{Title: "t", AssignedTo: ten.s1.ID, StartDate: taskNow, EndDate: taskNow}

	cases := []struct {
		name   string
		caller models.User
		mutate func(*TaskInput)
		kind   error
	}{
		{"staff cannot create", ten.s1, func(*TaskInput) {}, types.ErrForbidden},
		{"missing title", ten.m1, func(in *TaskInput) { in.Title = " " }, types.ErrValidation},
		{"end before start", ten.m1, func(in *TaskInput) { in.EndDate = taskNow.AddDate(0, 0, -1) }, types.ErrValidation},
		{"bad priority", ten.m1, func(in *TaskInput) { in.Priority = "urgent" }, types.ErrValidation},
		{"assignee in other company", ten.m1, func(in *TaskInput) { in.AssignedTo = ten.m2.ID }, types.ErrValidation},
		{"inactive assignee", ten.m1, func(in *TaskInput) { in.AssignedTo = "gone" }, types.ErrValidation},
		{"unknown assignee", ten.m1, func(in *TaskInput) { in.AssignedTo = "nobody" }, types.ErrNotFound},
		{"company outside scope", ten.m1, func(in *TaskInput) { in.CompanyID = "C2" }, types.ErrNotFound},
		{"admin without company", ten.admin, func(*TaskInput) {}, types.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)

			_, err := svc.Create(ctx, testutil.Identity(tc.caller), in)
			wantKind(t, err, tc.kind)
		})
	}
}

func TestSubTaskLifecycleRecomputesProgress(t *testing.T) {
	t.Parallel()

	svc, notifier, ten, _ := newTaskService(t)
	ctx := context.Background()
	task := createTask(t, svc, ten.m1, ten.s1.ID)
	staff := testutil.Identity(ten.s1)

	day1 := taskNow.AddDate(0, 0, -2)
	day2 := taskNow.AddDate(0, 0, -1)

	add := func(date time.Time, status models.TaskStatus) models.SubTask {
		t.Helper()
		_, st, err := svc.AddSubTask(ctx, staff, task.ID, date, SubTaskInput{Description: "work " + string(status), HoursSpent: 1.5, Status: status})
		if err != nil {
			t.Fatalf("add sub-task: %v", err)
		}
		return st
	}

	// added out of date order on purpose
	done := add(day2, models.StatusCompleted)
	running := add(day1, models.StatusInProgress)
	waiting := add(day1, models.StatusPending)
	add(day2, models.StatusCompleted)

	if done.CompletedAt == nil || !done.CompletedAt.Equal(taskNow) {
		t.Fatalf("completed sub-task not stamped: %+v", done)
	}

	got, err := svc.Get(ctx, staff, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	days := got.Days.Data()
	if len(days) != 2 || !days[0].Date.Equal(models.DateKey(day1)) || !days[1].Date.Equal(models.DateKey(day2)) {
		t.Fatalf("days out of order: %+v", days)
	}
	if got.Progress != 50 || got.Status != models.StatusInProgress {
		t.Fatalf("progress/status = %d/%s, want 50/in-progress", got.Progress, got.Status)
	}

	for _, id := range []string{running.ID, waiting.ID} {
		if _, _, err := svc.UpdateSubTask(ctx, staff, task.ID, id, SubTaskPatch{Status: testutil.Ptr(models.StatusCompleted)}); err != nil {
			t.Fatalf("update sub-task: %v", err)
		}
	}

	got, err = svc.Get(ctx, staff, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Progress != 100 || got.Status != models.StatusCompleted {
		t.Fatalf("progress/status = %d/%s, want 100/completed", got.Progress, got.Status)
	}

	reopened, st, err := svc.UpdateSubTask(ctx, staff, task.ID, done.ID, SubTaskPatch{Status: testutil.Ptr(models.StatusInProgress), Remarks: testutil.Ptr("rework")})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if st.CompletedAt != nil || st.Remarks != "rework" {
		t.Fatalf("reopened sub-task: %+v", st)
	}
	if reopened.Progress != 75 || reopened.Status != models.StatusInProgress {
		t.Fatalf("progress/status = %d/%s, want 75/in-progress", reopened.Progress, reopened.Status)
	}

	// both day1 entries go, so the day goes too
	for _, id := range []string{running.ID, waiting.ID} {
		if _, err := svc.DeleteSubTask(ctx, staff, task.ID, id); err != nil {
			t.Fatalf("delete sub-task: %v", err)
		}
	}

	got, err = svc.Get(ctx, staff, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if days := got.Days.Data(); len(days) != 1 || len(days[0].SubTasks) != 2 {
		t.Fatalf("unexpected days after delete: %+v", days)
	}
	if got.Progress != 50 {
		t.Fatalf("progress = %d, want 50", got.Progress)
	}

	_, err = svc.DeleteSubTask(ctx, staff, task.ID, "missing")
	wantKind(t, err, types.ErrNotFound)

	// create + 4 adds + 3 updates + 2 deletes
	if notifier.count() != 10 {
		t.Fatalf("notifications = %d, want 10", notifier.count())
	}
}

func TestDelayedSubTaskOnPastDay(t *testing.T) {
	t.Parallel()

	svc, _, ten, _ := newTaskService(t)
	ctx := context.Background()
	task := createTask(t, svc, ten.m1, ten.s1.ID)
	manager := testutil.Identity(ten.m1)

	updated, _, err := svc.AddSubTask(ctx, manager, task.ID, taskNow, SubTaskInput{Description: "today", Status: models.StatusDelayed})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if updated.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending for a delay logged today", updated.Status)
	}

	updated, _, err = svc.AddSubTask(ctx, manager, task.ID, taskNow.AddDate(0, 0, -3), SubTaskInput{Description: "late", Status: models.StatusDelayed})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if updated.Status != models.StatusDelayed {
		t.Fatalf("status = %s, want delayed", updated.Status)
	}
}

func TestSubTaskVisibility(t *testing.T) {
	t.Parallel()

	svc, _, ten, _ := newTaskService(t)
	ctx := context.Background()
	task := createTask(t, svc, ten.m1, ten.s1.ID)

	in := SubTaskInput{Description: "peek"}

	_, _, err := svc.AddSubTask(ctx, testutil.Identity(ten.s2), task.ID, taskNow, in)
	wantKind(t, err, types.ErrNotFound)

	_, _, err = svc.AddSubTask(ctx, testutil.Identity(ten.m2), task.ID, taskNow, in)
	wantKind(t, err, types.ErrNotFound)

	_, _, err = svc.AddSubTask(ctx, testutil.Identity(ten.s1), task.ID, taskNow, SubTaskInput{Description: "x", HoursSpent: -1})
	wantKind(t, err, types.ErrValidation)

	_, _, err = svc.AddSubTask(ctx, testutil.Identity(ten.s1), task.ID, time.Time{}, in)
	wantKind(t, err, types.ErrValidation)

	if _, _, err := svc.AddSubTask(ctx, testutil.Identity(ten.admin), task.ID, taskNow, in); err != nil {
		t.Fatalf("admin add: %v", err)
	}
}

func TestUpdateTaskDoesNotRecompute(t *testing.T) {
	t.Parallel()

	svc, _, ten, _ := newTaskService(t)
	ctx := context.Background()
	task := createTask(t, svc, ten.m1, ten.s1.ID)
	manager := testutil.Identity(ten.m1)

	if _, _, err := svc.AddSubTask(ctx, manager, task.ID, taskNow, SubTaskInput{Description: "a", Status: models.StatusCompleted}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := svc.AddSubTask(ctx, manager, task.ID, taskNow, SubTaskInput{Description: "b"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := svc.Update(ctx, manager, task.ID, TaskPatch{Title: testutil.Ptr("Renamed"), AssignedTo: testutil.Ptr(ten.s2.ID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" || updated.AssignedToID != ten.s2.ID {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Progress != 50 || len(updated.Days.Data()[0].SubTasks) != 2 {
		t.Fatalf("task-level update touched days: progress=%d", updated.Progress)
	}

	overridden, err := svc.Update(ctx, manager, task.ID, TaskPatch{Status: testutil.Ptr(models.StatusDelayed), Progress: testutil.Ptr(10)})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if overridden.Status != models.StatusDelayed || overridden.Progress != 10 {
		t.Fatalf("override not applied: %s/%d", overridden.Status, overridden.Progress)
	}

	_, err = svc.Update(ctx, manager, task.ID, TaskPatch{Progress: testutil.Ptr(101)})
	wantKind(t, err, types.ErrValidation)

	_, err = svc.Update(ctx, manager, task.ID, TaskPatch{})
	wantKind(t, err, types.ErrValidation)

	_, err = svc.Update(ctx, testutil.Identity(ten.s2), task.ID, TaskPatch{Title: testutil.Ptr("mine")})
	wantKind(t, err, types.ErrForbidden)
}

func TestListAndDeleteTasks(t *testing.T) {
	t.Parallel()

	svc, _, ten, _ := newTaskService(t)
	ctx := context.Background()

	mine := createTask(t, svc, ten.m1, ten.s1.ID)
	createTask(t, svc, ten.m1, ten.s2.ID)
	createTask(t, svc, ten.m2, ten.m2.ID)

	staffTasks, err := svc.List(ctx, testutil.Identity(ten.s1), visibility.TaskFilter{})
	if err != nil {
		t.Fatalf("staff list: %v", err)
	}
	if len(staffTasks) != 1 || staffTasks[0].ID != mine.ID {
		t.Fatalf("staff sees %d tasks", len(staffTasks))
	}
	if staffTasks[0].AssignedTo == nil || staffTasks[0].AssignedTo.Name != "Sam" {
		t.Fatalf("assignee not populated: %+v", staffTasks[0].AssignedTo)
	}

	managerTasks, err := svc.List(ctx, testutil.Identity(ten.m1), visibility.TaskFilter{Search: "QUARTER"})
	if err != nil {
		t.Fatalf("manager list: %v", err)
	}
	if len(managerTasks) != 2 {
		t.Fatalf("manager sees %d tasks, want 2", len(managerTasks))
	}

	_, err = svc.List(ctx, testutil.Identity(ten.m1), visibility.TaskFilter{Status: "done"})
	wantKind(t, err, types.ErrValidation)

	err = svc.Delete(ctx, testutil.Identity(ten.s1), mine.ID)
	wantKind(t, err, types.ErrForbidden)

	err = svc.Delete(ctx, testutil.Identity(ten.m2), mine.ID)
	wantKind(t, err, types.ErrNotFound)

	if err := svc.Delete(ctx, testutil.Identity(ten.m1), mine.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.Get(ctx, testutil.Identity(ten.admin), mine.ID)
	wantKind(t, err, types.ErrNotFound)
}

func TestConcurrentSubTaskAdds(t *testing.T) {
	t.Parallel()

	svc, _, ten, _ := newTaskService(t)
	ctx := context.Background()
	task := createTask(t, svc, ten.m1, ten.s1.ID)

	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			status := models.StatusPending
			if i%2 == 0 {
				status = models.StatusCompleted
			}

			_, _, err := svc.AddSubTask(ctx, testutil.Identity(ten.s1), task.ID, taskNow.AddDate(0, 0, -(i%3)), SubTaskInput{
				Description: fmt.Sprintf("entry %d", i),
				Status:      status,
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add: %v", err)
		}
	}

	got, err := svc.Get(ctx, testutil.Identity(ten.m1), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	total := 0
	for _, d := range got.Days.Data() {
		total += len(d.SubTasks)
	}

	if total != writers {
		t.Fatalf("sub-tasks = %d, want %d", total, writers)
	}
	if len(got.Days.Data()) != 3 {
		t.Fatalf("days = %d, want 3", len(got.Days.Data()))
	}
	if got.Progress != 50 {
		t.Fatalf("progress = %d, want 50", got.Progress)
	}
}
