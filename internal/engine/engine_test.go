package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flowmetric/internal/analytics"
	"flowmetric/internal/config"
	"flowmetric/internal/db"
	"flowmetric/internal/domain"
	"flowmetric/internal/engine"
	"flowmetric/internal/engine/auth"
	"flowmetric/internal/migrate"
	"flowmetric/internal/repo"
)

var clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	User   domain.User
	Proj   domain.Project
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	env := &testEnv{Engine: eng, Ctx: ctx}
	env.Engine.Now = func() time.Time { return clock }

	env.User, err = env.Engine.RegisterUser(ctx, engine.RegisterUserOptions{FarcasterID: "builder.eth", Name: "Bob", Role: "Developer"})
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	env.Proj, err = env.Engine.CreateProject(ctx, engine.CreateProjectOptions{
		ProjectName:   "Mobile App",
		DueDate:       "2024-02-15",
		AssignedUsers: []string{env.User.UserID},
		ActorID:       env.User.UserID,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return env
}

func (env *testEnv) task(t *testing.T, desc string, est float64) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskOptions{
		ProjectID:       env.Proj.ProjectID,
		AssignedUserID:  env.User.UserID,
		Description:     desc,
		EstimatedEffort: est,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestRegisterUserRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{FarcasterID: "builder.eth", Name: "Other", Role: "Designer"})
	if !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{FarcasterID: "x", Name: "No Role"})
	var verr engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestCreateProjectDefaultsAndActivity(t *testing.T) {
	env := newTestEnv(t)
	if env.Proj.Status != domain.ProjectActive || env.Proj.Progress != 0 {
		t.Fatalf("unexpected defaults %+v", env.Proj)
	}
	acts, err := env.Engine.RecentActivity(env.Ctx, 5)
	if err != nil {
		t.Fatalf("recent activity: %v", err)
	}
	if len(acts) != 1 || acts[0].Type != domain.ActivityProjectStarted || acts[0].ProjectID != env.Proj.ProjectID {
		t.Fatalf("unexpected activity %+v", acts)
	}
	if !acts[0].Timestamp.Equal(clock) {
		t.Fatalf("activity not stamped with engine clock: %v", acts[0].Timestamp)
	}

	_, err = env.Engine.CreateProject(env.Ctx, engine.CreateProjectOptions{ProjectName: "x", DueDate: "next week", AssignedUsers: []string{}})
	var verr engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "dueDate" {
		t.Fatalf("expected dueDate validation error, got %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.CreateProjectOptions{ProjectName: "x", DueDate: "2024-01-01"})
	if !errors.As(err, &verr) || verr.Field != "assignedUsers" {
		t.Fatalf("expected assignedUsers validation error, got %v", err)
	}
}

func TestUpdateProjectChecksEditor(t *testing.T) {
	env := newTestEnv(t)
	outsider, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{FarcasterID: "eve", Name: "Eve", Role: "Designer"})
	if err != nil {
		t.Fatal(err)
	}
	status := domain.ProjectDelayed
	_, err = env.Engine.UpdateProject(env.Ctx, engine.UpdateProjectOptions{ProjectID: env.Proj.ProjectID, Status: &status, Actor: &outsider})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	progress := 40.0
	p, err := env.Engine.UpdateProject(env.Ctx, engine.UpdateProjectOptions{ProjectID: env.Proj.ProjectID, Status: &status, Progress: &progress, Actor: &env.User})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Status != domain.ProjectDelayed || p.Progress != 40 || p.ProjectName != "Mobile App" {
		t.Fatalf("unexpected project %+v", p)
	}
	_, err = env.Engine.UpdateProject(env.Ctx, engine.UpdateProjectOptions{ProjectID: "missing", Status: &status})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Write docs", 4)
	if task.Status != domain.TaskPending || task.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults %+v", task)
	}
	_, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskOptions{ProjectID: env.Proj.ProjectID, AssignedUserID: "u", Description: "d"})
	var verr engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "estimatedEffort" {
		t.Fatalf("expected estimatedEffort validation error, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.CreateTaskOptions{ProjectID: "nope", AssignedUserID: "u", Description: "d", EstimatedEffort: 1})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected project not found, got %v", err)
	}
}

func TestTaskLifecycleTimestamps(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Implement auth", 4)

	task, err := env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: domain.TaskInProgress})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if task.StartTime == nil || !task.StartTime.Equal(clock) || task.EndTime != nil {
		t.Fatalf("start not stamped: %+v", task)
	}

	env.Engine.Now = func() time.Time { return clock.Add(3 * time.Hour) }
	task, err = env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: domain.TaskCompleted})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.EndTime == nil || task.ActualEffort == nil || *task.ActualEffort != 3 {
		t.Fatalf("completion not stamped: %+v", task)
	}
	stored, err := env.Engine.GetTask(env.Ctx, task.TaskID)
	if err != nil || stored.EndTime == nil || !stored.StartTime.Equal(clock) {
		t.Fatalf("stored task %+v, %v", stored, err)
	}

	acts, _ := env.Engine.RecentActivity(env.Ctx, 1)
	if acts[0].Type != domain.ActivityTaskCompleted || acts[0].TaskID != task.TaskID {
		t.Fatalf("expected task_completed activity, got %+v", acts[0])
	}

	task, err = env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: domain.TaskPending})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if task.StartTime != nil || task.EndTime != nil || task.ActualEffort != nil {
		t.Fatalf("reset did not clear timestamps: %+v", task)
	}

	_, err = env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: "done"})
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFrameActions(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Ship it", 2)

	res, err := env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: engine.ActionMarkInProgress, TaskID: task.TaskID, FarcasterID: "builder.eth"})
	if err != nil {
		t.Fatalf("start via frame: %v", err)
	}
	if res.Message != `🚀 Started working on "Ship it"` || res.Task.Status != domain.TaskInProgress {
		t.Fatalf("unexpected result %+v", res)
	}
	res, err = env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: engine.ActionMarkComplete, TaskID: task.TaskID, FarcasterID: "builder.eth"})
	if err != nil || res.Message != `✅ Task "Ship it" marked as completed!` || res.Task.EndTime == nil {
		t.Fatalf("complete via frame: %+v %v", res, err)
	}
	acts, _ := env.Engine.RecentActivity(env.Ctx, 1)
	if acts[0].Type != domain.ActivityTaskUpdate || acts[0].Description != res.Message {
		t.Fatalf("unexpected activity %+v", acts[0])
	}

	if _, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{FarcasterID: "carol", Name: "Carol", Role: "Designer"}); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: engine.ActionMarkPending, TaskID: task.TaskID, FarcasterID: "carol"})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: engine.ActionMarkPending, TaskID: task.TaskID, FarcasterID: "ghost"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	_, err = env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: engine.ActionMarkPending, TaskID: "missing", FarcasterID: "builder.eth"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected task not found, got %v", err)
	}
	_, err = env.Engine.ApplyFrameAction(env.Ctx, engine.FrameActionOptions{Action: "archive", TaskID: task.TaskID, FarcasterID: "builder.eth"})
	var verr engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "action" {
		t.Fatalf("expected action validation error, got %v", err)
	}
}

func TestAssignResource(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Render", 1)
	avail := 50.0
	res, err := env.Engine.CreateResource(env.Ctx, engine.CreateResourceOptions{ResourceName: "GPU", ResourceType: domain.ResourceEquipment, Availability: &avail})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	for i := 0; i < 2; i++ {
		res, err = env.Engine.AssignResource(env.Ctx, engine.AssignResourceOptions{ResourceID: res.ResourceID, TaskID: task.TaskID})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	if len(res.CurrentAssignments) != 1 {
		t.Fatalf("expected one assignment, got %v", res.CurrentAssignments)
	}
	acts, _ := env.Engine.RecentActivity(env.Ctx, 10)
	allocated := 0
	for _, a := range acts {
		if a.Type == domain.ActivityResourceAllocated {
			allocated++
		}
	}
	if allocated != 1 {
		t.Fatalf("expected one resource_allocated activity, got %d", allocated)
	}
	_, err = env.Engine.CreateResource(env.Ctx, engine.CreateResourceOptions{ResourceName: "Desk", ResourceType: domain.ResourceSpace})
	var verr engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "availability" {
		t.Fatalf("expected availability validation error, got %v", err)
	}
}

func TestDashboardFromStore(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []struct {
		est  float64
		took time.Duration
	}{{4, 3 * time.Hour}, {4, 4 * time.Hour}, {4, 5 * time.Hour}} {
		task := env.task(t, "work", d.est)
		env.Engine.Now = func() time.Time { return clock }
		if _, err := env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: domain.TaskInProgress}); err != nil {
			t.Fatal(err)
		}
		env.Engine.Now = func() time.Time { return clock.Add(d.took) }
		if _, err := env.Engine.SetTaskStatus(env.Ctx, engine.SetTaskStatusOptions{TaskID: task.TaskID, Status: domain.TaskCompleted}); err != nil {
			t.Fatal(err)
		}
	}
	low, high := 20.0, 95.0
	for _, a := range []*float64{&low, &high} {
		if _, err := env.Engine.CreateResource(env.Ctx, engine.CreateResourceOptions{ResourceName: "r", ResourceType: domain.ResourceHuman, Availability: a}); err != nil {
			t.Fatal(err)
		}
	}
	env.Engine.Now = func() time.Time { return clock }
	d, err := env.Engine.Dashboard(env.Ctx, 3)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalTasks != 3 || d.CompletedTasks != 3 || d.ActiveProjects != 1 {
		t.Fatalf("unexpected counts %+v", d)
	}
	if d.TeamEfficiency < 66.66 || d.TeamEfficiency > 66.67 {
		t.Fatalf("unexpected efficiency %v", d.TeamEfficiency)
	}
	if d.ResourceUtilization != 57.5 || len(d.Alerts) != 2 {
		t.Fatalf("unexpected utilization/alerts %v %+v", d.ResourceUtilization, d.Alerts)
	}
	if len(d.RecentActivity) != 3 || d.RecentActivity[0].Type != domain.ActivityTaskCompleted {
		t.Fatalf("unexpected recent activity %+v", d.RecentActivity)
	}

	progress, err := env.Engine.ProjectProgress(env.Ctx)
	if err != nil || len(progress) != 1 || progress[0].Progress != 100 {
		t.Fatalf("progress %+v %v", progress, err)
	}
	breakdown, err := env.Engine.TaskStatusBreakdown(env.Ctx)
	if err != nil || breakdown[domain.TaskCompleted] != 3 {
		t.Fatalf("breakdown %+v %v", breakdown, err)
	}
}

func TestOverdueAlertAfterDueDate(t *testing.T) {
	env := newTestEnv(t)
	env.task(t, "late work", 2)
	env.Engine.Now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	d, err := env.Engine.Dashboard(env.Ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Alerts) != 1 || d.Alerts[0].ID != analytics.AlertOverdueTasks || d.Alerts[0].Message != "1 tasks are overdue" {
		t.Fatalf("unexpected alerts %+v", d.Alerts)
	}
}

func TestImportDemoSeed(t *testing.T) {
	env := newTestEnv(t)
	sum, err := env.Engine.Import(env.Ctx, engine.DemoSeed())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if sum.Users != 3 || sum.Tasks != 3 || sum.Resources != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	u, err := env.Engine.UserByFarcasterID(env.Ctx, "alice.eth")
	if err != nil || u.Role != "Project Manager" {
		t.Fatalf("alice: %+v %v", u, err)
	}
	if _, err := env.Engine.Import(env.Ctx, engine.DemoSeed()); !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("expected conflict on re-import, got %v", err)
	}
	card, err := env.Engine.TaskCard(env.Ctx, "1")
	if err != nil || card.ProjectName != "Mobile App Redesign" || card.AssigneeName != "Carol Davis" {
		t.Fatalf("card %+v %v", card, err)
	}
}
