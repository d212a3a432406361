package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"flowmetric/internal/db"
	"flowmetric/internal/domain"
	"flowmetric/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn)
}

func strPtr(s string) *string { return &s }

func TestUsersRoundTripAndConflict(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	u := domain.User{UserID: "u1", FarcasterID: strPtr("fc-1"), Name: "Ada", Role: "Developer", Skills: []string{"go"}}
	if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.InsertUser(ctx, tx, u) }); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	got, err := r.GetUserByFarcasterID(ctx, nil, "fc-1")
	if err != nil {
		t.Fatalf("get by farcaster: %v", err)
	}
	if got.UserID != "u1" || got.Name != "Ada" || len(got.Skills) != 1 || got.Avatar != nil {
		t.Fatalf("unexpected user %+v", got)
	}
	dup := domain.User{UserID: "u2", FarcasterID: strPtr("fc-1"), Name: "Bob", Role: "Developer"}
	err = r.WithTx(ctx, func(tx *sql.Tx) error { return r.InsertUser(ctx, tx, dup) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := r.GetUser(ctx, nil, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	users, err := r.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list users: %v %v", users, err)
	}
}

func TestProjectsByUserAndUpdate(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	err := r.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.InsertProject(ctx, tx, domain.Project{ProjectID: "p1", ProjectName: "Alpha", DueDate: "2030-01-01", Status: domain.ProjectActive, AssignedUsers: []string{"u1", "u2"}}); err != nil {
			return err
		}
		return r.InsertProject(ctx, tx, domain.Project{ProjectID: "p2", ProjectName: "Beta", DueDate: "2030-01-01", Status: domain.ProjectIdle, AssignedUsers: []string{"u2"}})
	})
	if err != nil {
		t.Fatalf("insert projects: %v", err)
	}
	mine, err := r.ListProjectsByUser(ctx, "u1")
	if err != nil || len(mine) != 1 || mine[0].ProjectID != "p1" {
		t.Fatalf("projects by u1: %+v %v", mine, err)
	}
	theirs, err := r.ListProjectsByUser(ctx, "u2")
	if err != nil || len(theirs) != 2 {
		t.Fatalf("projects by u2: %+v %v", theirs, err)
	}

	p, _ := r.GetProject(ctx, nil, "p1")
	p.Status = domain.ProjectCompleted
	p.Progress = 100
	if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.UpdateProject(ctx, tx, p) }); err != nil {
		t.Fatalf("update project: %v", err)
	}
	got, _ := r.GetProject(ctx, nil, "p1")
	if got.Status != domain.ProjectCompleted || got.Progress != 100 {
		t.Fatalf("update not persisted: %+v", got)
	}
	missing := domain.Project{ProjectID: "nope"}
	if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.UpdateProject(ctx, tx, missing) }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTaskTimesSurviveStorage(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	start := time.Date(2024, 3, 1, 9, 30, 0, 123000000, time.UTC)
	actual := 2.5
	task := domain.Task{TaskID: "t1", ProjectID: "p1", AssignedUserID: "u1", Description: "write docs",
		Status: domain.TaskInProgress, StartTime: &start, EstimatedEffort: 3, ActualEffort: &actual, Priority: domain.PriorityHigh}
	if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.InsertTask(ctx, tx, task) }); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	got, err := r.GetTask(ctx, nil, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.StartTime == nil || !got.StartTime.Equal(start) || got.EndTime != nil {
		t.Fatalf("times not preserved: %+v", got)
	}
	if got.ActualEffort == nil || *got.ActualEffort != 2.5 {
		t.Fatalf("actual effort lost: %+v", got)
	}
	byUser, err := r.ListTasks(ctx, TaskFilters{UserID: "u1", ProjectID: "p1"})
	if err != nil || len(byUser) != 1 {
		t.Fatalf("filtered list: %v %v", byUser, err)
	}
	none, err := r.ListTasks(ctx, TaskFilters{UserID: "u2"})
	if err != nil || len(none) != 0 || none == nil {
		t.Fatalf("expected empty non-nil list, got %#v %v", none, err)
	}
}

func TestReadTxSeesOneStateAcrossReads(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	newTask := func(id string) domain.Task {
		return domain.Task{TaskID: id, ProjectID: "p1", AssignedUserID: "u1", Description: id,
			Status: domain.TaskPending, EstimatedEffort: 1, Priority: domain.PriorityMedium}
	}
	if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.InsertTask(ctx, tx, newTask("t1")) }); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	writeDone := make(chan error, 1)
	err := r.WithReadTx(ctx, func(tx *sql.Tx) error {
		first, err := r.ListTasksTx(ctx, tx, TaskFilters{})
		if err != nil {
			return err
		}
		go func() {
			writeDone <- r.WithTx(ctx, func(wtx *sql.Tx) error { return r.InsertTask(ctx, wtx, newTask("t2")) })
		}()
		time.Sleep(50 * time.Millisecond)
		second, err := r.ListTasksTx(ctx, tx, TaskFilters{})
		if err != nil {
			return err
		}
		if len(first) != 1 || len(second) != 1 {
			return fmt.Errorf("read tx saw %d then %d tasks", len(first), len(second))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read tx: %v", err)
	}
	if err := <-writeDone; err != nil {
		t.Fatalf("concurrent write: %v", err)
	}
	all, err := r.ListTasks(ctx, TaskFilters{})
	if err != nil || len(all) != 2 {
		t.Fatalf("after read tx: %v %v", all, err)
	}
}

func TestActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := domain.Activity{ID: fmt.Sprintf("a%d", i), Type: domain.ActivityTaskUpdate, Description: "x", Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := r.WithTx(ctx, func(tx *sql.Tx) error { return r.InsertActivity(ctx, tx, a) }); err != nil {
			t.Fatalf("insert activity: %v", err)
		}
	}
	recent, err := r.RecentActivities(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != "a4" || recent[2].ID != "a2" {
		t.Fatalf("unexpected order %+v", recent)
	}
	after, err := r.ActivitiesAfter(ctx, recent[1].Seq, 10)
	if err != nil || len(after) != 1 || after[0].ID != "a4" {
		t.Fatalf("after cursor: %+v %v", after, err)
	}
	seq, err := r.LatestActivitySeq(ctx)
	if err != nil || seq != recent[0].Seq {
		t.Fatalf("latest seq %d %v", seq, err)
	}
}

func TestConcurrentWritesAreSerialized(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			copyOfRepo := r
			errs <- copyOfRepo.WithTx(ctx, func(tx *sql.Tx) error {
				return copyOfRepo.InsertResource(ctx, tx, domain.Resource{
					ResourceID: fmt.Sprintf("r%d", i), ResourceName: "desk", ResourceType: domain.ResourceSpace, Availability: 50,
				})
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent insert: %v", err)
		}
	}
	all, err := r.ListResources(ctx)
	if err != nil || len(all) != 20 {
		t.Fatalf("expected 20 resources, got %d (%v)", len(all), err)
	}
	if err := r.WithTx(ctx, func(tx *sql.Tx) error {
		return r.UpdateResourceAssignments(ctx, tx, "r0", []string{"t1"})
	}); err != nil {
		t.Fatalf("update assignments: %v", err)
	}
	got, _ := r.GetResource(ctx, nil, "r0")
	if len(got.CurrentAssignments) != 1 || got.CurrentAssignments[0] != "t1" || got.Skills != nil {
		t.Fatalf("unexpected resource %+v", got)
	}
}
