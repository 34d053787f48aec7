package records

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/data/repos/testutil"
	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
)

func TestCaptureRepoForwardOnly(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCaptureRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	rec := testutil.SeedCapture(t, ctx, tx, "dev-1")

	ok, err := repo.UpdateFieldsIfStatus(dbc, rec.ID, []string{capture.StatusProcessing}, map[string]interface{}{
		"status": capture.StatusCompleted,
		"text":   "hello",
	})
	if err != nil {
		t.Fatalf("UpdateFieldsIfStatus: %v", err)
	}
	if !ok {
		t.Fatalf("UpdateFieldsIfStatus: want applied")
	}

	ok, err = repo.UpdateFieldsIfStatus(dbc, rec.ID, []string{capture.StatusProcessing}, map[string]interface{}{
		"status": capture.StatusError,
		"error":  "late failure",
	})
	if err != nil {
		t.Fatalf("UpdateFieldsIfStatus second: %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsIfStatus second: want skipped on terminal record")
	}

	got, err := repo.GetByID(dbc, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != capture.StatusCompleted {
		t.Fatalf("Status: want=%q got=%q", capture.StatusCompleted, got.Status)
	}
	if got.Text == nil || *got.Text != "hello" {
		t.Fatalf("Text: want=hello got=%v", got.Text)
	}
	if got.Error != nil {
		t.Fatalf("Error: want nil got=%q", *got.Error)
	}
}

func TestCaptureRepoListExpiredAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCaptureRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	old := testutil.SeedCapture(t, ctx, tx, "dev-1")
	fresh := testutil.SeedCapture(t, ctx, tx, "dev-1")
	past := time.Now().UTC().Add(-time.Hour)
	if err := tx.Model(old).Update("expires_at", past).Error; err != nil {
		t.Fatalf("age capture: %v", err)
	}

	expired, err := repo.ListExpired(dbc, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Fatalf("ListExpired: want [%s] got=%v", old.ID, expired)
	}

	if err := repo.Delete(dbc, old.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.GetByID(dbc, old.ID)
	if err != nil {
		t.Fatalf("GetByID deleted: %v", err)
	}
	if gone != nil {
		t.Fatalf("GetByID deleted: want nil")
	}
	kept, err := repo.GetByID(dbc, fresh.ID)
	if err != nil || kept == nil {
		t.Fatalf("GetByID fresh: want record got=%v err=%v", kept, err)
	}
}

func TestContextRepoGetByIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewContextRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	a := testutil.SeedContext(t, ctx, tx, "dev-1", "Seattle")
	b := testutil.SeedContext(t, ctx, tx, "dev-1", "Lisbon")

	got, err := repo.GetByIDs(dbc, []uuid.UUID{a.ID, b.ID, uuid.New()})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByIDs: want=2 got=%d", len(got))
	}

	one, err := repo.GetByID(dbc, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if one.Location.PlaceName != "Lisbon" {
		t.Fatalf("PlaceName: want=Lisbon got=%q", one.Location.PlaceName)
	}
	if one.Weather.Condition != "Clear" {
		t.Fatalf("Weather.Condition: want=Clear got=%q", one.Weather.Condition)
	}
}

func TestArtifactRepoTransitions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewArtifactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	c := testutil.SeedCapture(t, ctx, tx, "dev-1")
	e := testutil.SeedContext(t, ctx, tx, "dev-1", "Seattle")
	rec := testutil.SeedArtifact(t, ctx, tx, "dev-1", c, e)

	steps := []struct {
		to   string
		want bool
	}{
		{artifact.StatusProcessing, true},
		{artifact.StatusProcessing, false},
		{artifact.StatusCompleted, true},
		{artifact.StatusError, false},
	}
	for i, s := range steps {
		ok, err := repo.UpdateFieldsIfStatus(dbc, rec.ID, artifact.AllowedFrom(s.to), map[string]interface{}{"status": s.to})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if ok != s.want {
			t.Fatalf("step %d (%s): want=%v got=%v", i, s.to, s.want, ok)
		}
	}

	got, err := repo.GetByIDForDevice(dbc, rec.ID, "dev-1")
	if err != nil {
		t.Fatalf("GetByIDForDevice: %v", err)
	}
	if got.Status != artifact.StatusCompleted {
		t.Fatalf("Status: want=%q got=%q", artifact.StatusCompleted, got.Status)
	}

	other, err := repo.GetByIDForDevice(dbc, rec.ID, "dev-2")
	if err != nil {
		t.Fatalf("GetByIDForDevice other: %v", err)
	}
	if other != nil {
		t.Fatalf("GetByIDForDevice other: want nil")
	}
}

func TestArtifactRepoListCompleted(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewArtifactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	c := testutil.SeedCapture(t, ctx, tx, "dev-1")
	e := testutil.SeedContext(t, ctx, tx, "dev-1", "Seattle")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rec := testutil.SeedArtifact(t, ctx, tx, "dev-1", c, e)
		err := tx.Model(rec).Updates(map[string]interface{}{
			"status":     artifact.StatusCompleted,
			"created_at": base.Add(time.Duration(i) * time.Minute),
		}).Error
		if err != nil {
			t.Fatalf("complete artifact: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	testutil.SeedArtifact(t, ctx, tx, "dev-1", c, e)
	testutil.SeedArtifact(t, ctx, tx, "dev-2", c, e)

	page, total, err := repo.ListCompleted(dbc, GalleryQuery{DeviceID: "dev-1", Limit: 2, Offset: 0, SortBy: "createdAt", Desc: true})
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if total != 3 {
		t.Fatalf("total: want=3 got=%d", total)
	}
	if len(page) != 2 {
		t.Fatalf("page len: want=2 got=%d", len(page))
	}
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("order: want=[%s %s] got=[%s %s]", ids[2], ids[1], page[0].ID, page[1].ID)
	}

	rest, _, err := repo.ListCompleted(dbc, GalleryQuery{DeviceID: "dev-1", Limit: 2, Offset: 2, SortBy: "createdAt", Desc: true})
	if err != nil {
		t.Fatalf("ListCompleted offset: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Fatalf("offset page: want=[%s] got=%v", ids[0], rest)
	}
}
