package props_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"props-bible/config"
	"props-bible/core/jobroles"
	"props-bible/core/labels"
	"props-bible/core/objectstore"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
	propsstore "props-bible/props/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db      *sql.DB
	svc     *props.Service
	objects *objectstore.FSStore
	owner   int64
	show    *cstore.Show
}

func newFixture(t *testing.T, plan string) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := utils.NewLogger()
	db, err := cstore.NewDB(&config.AppConfig{DBPath: filepath.Join(dir, "svc.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, cstore.ApplyMigrations(ctx, db, logger))

	users := cstore.NewUsersStore(db)
	owner, err := users.Create(ctx, &cstore.User{Username: "pm", Active: true, Plan: plan}, []string{jobroles.OwnerRoleID})
	require.NoError(t, err)
	show := &cstore.Show{OwnerID: owner, Name: "Macbeth", Acts: []cstore.Act{{Number: 1, Scenes: []cstore.Scene{{Number: 1}, {Number: 2}}}}}
	_, err = cstore.NewShowsStore(db).Create(ctx, show, jobroles.OwnerRoleID)
	require.NoError(t, err)

	objects, err := objectstore.NewFS(filepath.Join(dir, "objects"), 1<<20)
	require.NoError(t, err)
	limits := subscription.NewService(users, cstore.NewCountersStore(db), "free", nil)
	gen := labels.NewGenerator(config.LabelsConfig{CacheSize: 8, QRSize: 128})
	svc := props.NewService(propsstore.NewStore(db), limits, objects, gen, "https://props.example", logger)
	return &fixture{db: db, svc: svc, objects: objects, owner: owner, show: show}
}

func TestCreateCountsAgainstOwnerPlan(t *testing.T) {
	f := newFixture(t, "free")
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Dagger"}, f.owner)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "One too many"}, f.owner)
	require.ErrorIs(t, err, subscription.ErrLimitReached)

	items, _, err := f.svc.Store().List(ctx, props.Filter{ShowID: f.show.ID, Limit: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, &items[0]))
	_, err = f.svc.Create(ctx, f.show, &props.Prop{Name: "Replacement"}, f.owner)
	require.NoError(t, err)
}

func TestCreateValidatesStage(t *testing.T) {
	f := newFixture(t, "pro")
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Torch", Act: 2}, f.owner)
	assert.ErrorIs(t, err, props.ErrInvalidInput)
	_, err = f.svc.Create(ctx, f.show, &props.Prop{Name: "Torch", Act: 1, Scene: 3}, f.owner)
	assert.ErrorIs(t, err, props.ErrInvalidInput)
	_, err = f.svc.Create(ctx, f.show, &props.Prop{Name: "", Act: 1}, f.owner)
	assert.ErrorIs(t, err, props.ErrInvalidInput)

	p, err := f.svc.Create(ctx, f.show, &props.Prop{Name: " Torch ", Act: 1, Scene: 2, Category: " Set  Dressing"}, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "Torch", p.Name)
	assert.Equal(t, "set dressing", p.Category)
	assert.Equal(t, 1, p.Quantity)
	assert.Equal(t, props.StatusConfirmed, p.Status)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t, "pro")
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Cauldron"}, f.owner)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, p, "lost", "", f.owner)
	assert.ErrorIs(t, err, props.ErrInvalidInput)

	stale := *p
	updated, err := f.svc.ChangeStatus(ctx, p, "out_for_repair", "handle cracked", f.owner)
	require.NoError(t, err)
	assert.Equal(t, props.StatusOutForRepair, updated.Status)

	_, err = f.svc.ChangeStatus(ctx, &stale, "missing", "", f.owner)
	assert.ErrorIs(t, err, props.ErrConflict)

	hist, err := f.svc.History(ctx, p)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "handle cracked", hist[0].Note)
}

func TestImages(t *testing.T) {
	f := newFixture(t, "pro")
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Banner"}, f.owner)
	require.NoError(t, err)

	_, err = f.svc.AddImage(ctx, p, "notes.txt", "text/plain", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, props.ErrInvalidInput)

	first, err := f.svc.AddImage(ctx, p, "front.png", "image/png", "front", strings.NewReader("png-1"))
	require.NoError(t, err)
	assert.True(t, first.IsMain)
	assert.True(t, strings.HasPrefix(first.Key, "shows/"))
	assert.Contains(t, first.URL, "/api/shows/")
	second, err := f.svc.AddImage(ctx, p, "back.png", "image/png", "back", strings.NewReader("png-2"))
	require.NoError(t, err)
	assert.False(t, second.IsMain)

	require.NoError(t, f.svc.SetMainImage(ctx, p, second.Key))
	stored, err := f.svc.Store().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Key, stored.MainImage().Key)

	require.NoError(t, f.svc.RemoveImage(ctx, stored, second.Key))
	assert.Len(t, stored.Images, 1)
	assert.True(t, stored.Images[0].IsMain)
	_, _, err = f.objects.Get(ctx, second.Key)
	assert.True(t, errors.Is(err, objectstore.ErrNotFound))

	assert.ErrorIs(t, f.svc.RemoveImage(ctx, stored, "missing.png"), props.ErrNotFound)
}

func TestShowObjectsAreCollectedBeforeAndDroppedAfterDelete(t *testing.T) {
	f := newFixture(t, "pro")
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Skull"}, f.owner)
	require.NoError(t, err)
	img, err := f.svc.AddImage(ctx, p, "skull.png", "image/png", "", strings.NewReader("png"))
	require.NoError(t, err)

	objs, err := f.svc.CollectShowObjects(ctx, f.show.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{img.Key}, objs.Keys)
	require.Len(t, objs.LabelURLs, 1)
	// collecting leaves the blob in place
	rc, _, err := f.objects.Get(ctx, img.Key)
	require.NoError(t, err)
	_ = rc.Close()

	require.NoError(t, cstore.NewShowsStore(f.db).Delete(ctx, f.show.ID))
	f.svc.DropShowObjects(ctx, objs)
	_, _, err = f.objects.Get(ctx, img.Key)
	assert.True(t, errors.Is(err, objectstore.ErrNotFound))

	empty, err := f.svc.CollectShowObjects(ctx, f.show.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Keys)
}

func TestLabelAndExport(t *testing.T) {
	f := newFixture(t, "pro")
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.show, &props.Prop{Name: "Letter, sealed", Price: 12.5, Currency: "usd", Tags: []string{"paper", "act one"}}, f.owner)
	require.NoError(t, err)

	png, err := f.svc.Label(p, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	var buf bytes.Buffer
	n, err := f.svc.ExportCSV(ctx, &buf, f.show.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotContains(t, rows[0], "price")
	assert.Equal(t, "Letter, sealed", rows[1][1])
	assert.Equal(t, "paper;act one", rows[1][9])

	buf.Reset()
	_, err = f.svc.ExportCSV(ctx, &buf, f.show.ID, true)
	require.NoError(t, err)
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"12.50", "USD"}, rows[1][len(rows[1])-2:])
}
