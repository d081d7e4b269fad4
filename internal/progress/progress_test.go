package progress

import (
	"math/rand"
	"testing"
	"time"

	"github.com/monocle-dev/taskflow/internal/models"
	"gorm.io/datatypes"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func day(offset int, statuses ...models.TaskStatus) models.Day {
	d := models.Day{Date: now.AddDate(0, 0, offset)}
	for _, s := range statuses {
		d.SubTasks = append(d.SubTasks, models.SubTask{Description: "work", Status: s})
	}
	return d
}

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		days []models.Day
		want Result
	}{
		{
			name: "no days",
			want: Result{Progress: 0, Status: models.StatusPending},
		},
		{
			name: "days without sub-tasks",
			days: []models.Day{day(0), day(1)},
			want: Result{Progress: 0, Status: models.StatusPending},
		},
		{
			name: "half done is in progress",
			days: []models.Day{
				day(-1, models.StatusCompleted, models.StatusCompleted),
				day(0, models.StatusInProgress, models.StatusPending),
			},
			want: Result{Progress: 50, Status: models.StatusInProgress},
		},
		{
			name: "all completed",
			days: []models.Day{day(0, models.StatusCompleted, models.StatusCompleted, models.StatusCompleted)},
			want: Result{Progress: 100, Status: models.StatusCompleted},
		},
		{
			name: "delayed on a past day wins over in progress",
			days: []models.Day{
				day(-2, models.StatusDelayed),
				day(0, models.StatusInProgress),
			},
			want: Result{Progress: 0, Status: models.StatusDelayed},
		},
		{
			name: "delayed today does not count",
			days: []models.Day{day(0, models.StatusDelayed, models.StatusPending)},
			want: Result{Progress: 0, Status: models.StatusPending},
		},
		{
			name: "delayed in the future falls through to in progress",
			days: []models.Day{day(3, models.StatusDelayed), day(0, models.StatusCompleted)},
			want: Result{Progress: 50, Status: models.StatusInProgress},
		},
		{
			name: "one third rounds down",
			days: []models.Day{day(0, models.StatusCompleted, models.StatusPending, models.StatusPending)},
			want: Result{Progress: 33, Status: models.StatusInProgress},
		},
		{
			name: "two thirds rounds up",
			days: []models.Day{day(0, models.StatusCompleted, models.StatusCompleted, models.StatusPending)},
			want: Result{Progress: 67, Status: models.StatusInProgress},
		},
		{
			name: "half rounds up",
			days: []models.Day{day(0,
				models.StatusCompleted, models.StatusPending, models.StatusPending, models.StatusPending,
				models.StatusPending, models.StatusPending, models.StatusPending, models.StatusPending,
			)},
			want: Result{Progress: 13, Status: models.StatusInProgress},
		},
		{
			name: "only pending",
			days: []models.Day{day(-1, models.StatusPending), day(0, models.StatusPending)},
			want: Result{Progress: 0, Status: models.StatusPending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.days, now)
			if got != tt.want {
				t.Fatalf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	t.Parallel()

	statuses := []models.TaskStatus{
		models.StatusPending, models.StatusInProgress, models.StatusCompleted, models.StatusDelayed,
	}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		var days []models.Day
		for d := rng.Intn(4); d > 0; d-- {
			var picked []models.TaskStatus
			for s := rng.Intn(5); s > 0; s-- {
				picked = append(picked, statuses[rng.Intn(len(statuses))])
			}
			days = append(days, day(rng.Intn(7)-3, picked...))
		}

		got := Compute(days, now)
		if got.Progress < 0 || got.Progress > 100 {
			t.Fatalf("progress out of range: %d", got.Progress)
		}
		if (got.Status == models.StatusCompleted) != (got.Progress == 100) {
			t.Fatalf("status %s with progress %d", got.Status, got.Progress)
		}
		if again := Compute(days, now); again != got {
			t.Fatalf("recompute changed result: %+v then %+v", got, again)
		}
	}
}

func TestPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		part, total int64
		want        int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 2, 50},
		{1, 8, 13},
		{1, 200, 1},
		{1, 201, 0},
		{7, 7, 100},
	}

	for _, c := range cases {
		if got := Percent(c.part, c.total); got != c.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", c.part, c.total, got, c.want)
		}
	}
}

func TestApplyStampsTriggerOnCompletion(t *testing.T) {
	t.Parallel()

	days := []models.Day{day(0, models.StatusCompleted, models.StatusCompleted)}
	task := models.Task{Status: models.StatusInProgress, Days: datatypes.NewJSONType(days)}
	trigger := &days[0].SubTasks[1]

	res := Apply(&task, trigger, now)

	if res.Status != models.StatusCompleted || task.Status != models.StatusCompleted || task.Progress != 100 {
		t.Fatalf("unexpected task state: %+v / %s %d", res, task.Status, task.Progress)
	}
	if trigger.CompletedAt == nil || !trigger.CompletedAt.Equal(now) {
		t.Fatalf("expected trigger to be stamped, got %v", trigger.CompletedAt)
	}
}

func TestApplyKeepsExistingCompletion(t *testing.T) {
	t.Parallel()

	earlier := now.Add(-time.Hour)
	days := []models.Day{day(0, models.StatusCompleted)}
	days[0].SubTasks[0].CompletedAt = &earlier
	task := models.Task{Status: models.StatusPending, Days: datatypes.NewJSONType(days)}

	Apply(&task, &days[0].SubTasks[0], now)

	if !days[0].SubTasks[0].CompletedAt.Equal(earlier) {
		t.Fatalf("completedAt overwritten: %v", days[0].SubTasks[0].CompletedAt)
	}
}

func TestApplyWithoutSubTasks(t *testing.T) {
	t.Parallel()

	task := models.Task{Status: models.StatusCompleted, Progress: 100}

	Apply(&task, nil, now)

	if task.Status != models.StatusPending || task.Progress != 0 {
		t.Fatalf("expected pending/0, got %s/%d", task.Status, task.Progress)
	}
}

func TestStampSubTask(t *testing.T) {
	t.Parallel()

	st := models.SubTask{Status: models.StatusCompleted}
	StampSubTask(&st, now)
	if st.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	later := now.Add(time.Hour)
	StampSubTask(&st, later)
	if !st.CompletedAt.Equal(now) {
		t.Fatalf("completedAt moved to %v", st.CompletedAt)
	}

	st.Status = models.StatusInProgress
	StampSubTask(&st, later)
	if st.CompletedAt != nil {
		t.Fatalf("expected completedAt cleared, got %v", st.CompletedAt)
	}
}
