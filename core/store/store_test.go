package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"props-bible/config"
	"props-bible/core/jobroles"
	"props-bible/core/utils"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "store.db")}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	id, err := NewUsersStore(db).Create(context.Background(), &User{Username: username, Active: true, Plan: "free"}, []string{"viewer"})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func createShow(t *testing.T, db *sql.DB, ownerID int64, name string) int64 {
	t.Helper()
	id, err := NewShowsStore(db).Create(context.Background(), &Show{OwnerID: ownerID, Name: name}, jobroles.OwnerRoleID)
	if err != nil {
		t.Fatalf("create show: %v", err)
	}
	return id
}

func TestMigrationsUpToDate(t *testing.T) {
	db := newTestDB(t)
	st, err := GetMigrationStatus(context.Background(), db)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Dialect != "sqlite3" || !st.HasGooseTable || st.HasPending {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.CurrentVersion != st.LatestVersion {
		t.Fatalf("version mismatch %d != %d", st.CurrentVersion, st.LatestVersion)
	}
	// second run is a no-op
	if err := ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("reapply: %v", err)
	}
}

func TestUsersRolesAndPlan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUsersStore(db)
	id := createUser(t, db, " Alice ")
	u, roles, err := users.FindByUsername(ctx, "alice")
	if err != nil || u == nil {
		t.Fatalf("find: %v %v", u, err)
	}
	if u.ID != id || len(roles) != 1 || roles[0] != "viewer" {
		t.Fatalf("unexpected user %+v roles %v", u, roles)
	}
	if err := users.SetRoles(ctx, id, []string{"props_buyer", "crew"}); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if err := users.SetPlan(ctx, id, "pro"); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	u, roles, _ = users.Get(ctx, id)
	if u.Plan != "pro" || len(roles) != 2 {
		t.Fatalf("unexpected after update %+v %v", u, roles)
	}
	n, err := users.CountWithRole(ctx, "crew")
	if err != nil || n != 1 {
		t.Fatalf("count with role: %d %v", n, err)
	}
	missing, _, err := users.FindByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing user, got %v %v", missing, err)
	}
}

func TestRolesOptimisticVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	roles := NewRolesStore(db)
	if err := roles.EnsureBuiltIn(ctx, jobroles.Roles()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// idempotent
	if err := roles.EnsureBuiltIn(ctx, jobroles.Roles()); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}
	role, err := jobroles.NewCustomRole(jobroles.CustomRoleInput{Name: "Wardrobe Lead", BasedOn: "crew", CreatedBy: "alice"}, time.Now())
	if err != nil {
		t.Fatalf("new custom: %v", err)
	}
	if err := roles.Create(ctx, role); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := roles.Create(ctx, role); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	stored, err := roles.Get(ctx, role.ID)
	if err != nil || stored == nil || !stored.IsCustom || stored.Version != 1 {
		t.Fatalf("unexpected stored role %+v %v", stored, err)
	}
	name := "Wardrobe Head"
	updated, err := jobroles.ApplyCustomUpdate(*stored, jobroles.CustomRoleUpdate{Name: &name}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := roles.Update(ctx, updated, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := roles.Update(ctx, updated, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	producer, _ := roles.Get(ctx, "producer")
	if producer == nil || producer.IsCustom {
		t.Fatalf("expected built-in producer")
	}
	if err := roles.Update(ctx, *producer, producer.Version); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("built-in update must not match, got %v", err)
	}
	if err := roles.Delete(ctx, "producer"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("built-in delete must not match, got %v", err)
	}
	custom, err := roles.ListCustom(ctx)
	if err != nil || len(custom) != 1 || custom[0].Name != name {
		t.Fatalf("unexpected custom list %+v %v", custom, err)
	}
}

func TestShowOwnerIsMemberAndDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shows := NewShowsStore(db)
	owner := createUser(t, db, "owner")
	guest := createUser(t, db, "guest")
	showID := createShow(t, db, owner, "Hamlet")

	m, err := shows.Member(ctx, showID, owner)
	if err != nil || m == nil || m.RoleID != jobroles.OwnerRoleID {
		t.Fatalf("owner membership missing: %+v %v", m, err)
	}
	if _, err := shows.AddMember(ctx, &ShowMember{ShowID: showID, UserID: guest, RoleID: "Crew", AddedBy: owner}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := shows.AddMember(ctx, &ShowMember{ShowID: showID, UserID: guest, RoleID: "crew"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate member, got %v", err)
	}
	list, err := shows.ListForUser(ctx, guest, false)
	if err != nil || len(list) != 1 {
		t.Fatalf("guest should see the show: %v %v", list, err)
	}
	acts := []Act{{Number: 1, Name: "Act I", Scenes: []Scene{{Number: 1, Name: "Elsinore"}}}}
	if err := shows.SetActs(ctx, showID, acts); err != nil {
		t.Fatalf("set acts: %v", err)
	}
	sh, _ := shows.Get(ctx, showID)
	if len(sh.Acts) != 1 || sh.Acts[0].Scenes[0].Name != "Elsinore" {
		t.Fatalf("acts not stored: %+v", sh.Acts)
	}
	if err := shows.SetStatus(ctx, showID, ShowStatusActive, ShowStatusArchived, time.Now()); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := shows.SetStatus(ctx, showID, ShowStatusActive, ShowStatusArchived, time.Now()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second archive must conflict, got %v", err)
	}
	list, _ = shows.ListForUser(ctx, owner, false)
	if len(list) != 0 {
		t.Fatalf("archived show must be hidden by default")
	}
	if err := shows.Delete(ctx, showID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sh, _ := shows.Get(ctx, showID); sh != nil {
		t.Fatalf("show should be gone")
	}
	members, _ := shows.Members(ctx, showID)
	if len(members) != 0 {
		t.Fatalf("members should be gone, got %d", len(members))
	}
}

func insertProp(t *testing.T, db *sql.DB, showID, ownerID int64, name string, weight float64) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO props(show_id, owner_id, name, status, weight_kg, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		showID, ownerID, name, "confirmed", weight, now, now)
	if err != nil {
		t.Fatalf("insert prop: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestPackingTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	packing := NewPackingStore(db)
	owner := createUser(t, db, "owner")
	showID := createShow(t, db, owner, "Macbeth")
	sword := insertProp(t, db, showID, owner, "Sword", 2.5)
	crown := insertProp(t, db, showID, owner, "Crown", 1)

	listID, err := packing.Create(ctx, &PackList{ShowID: showID, OwnerID: owner, Name: "Tour"})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	c1, err := packing.CreateContainer(ctx, &PackContainer{PackListID: listID, Name: "Crate A", MaxWeightKg: 5})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	c2, _ := packing.CreateContainer(ctx, &PackContainer{PackListID: listID, Name: "Crate B"})
	if err := packing.PutProp(ctx, c1, sword, 2); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := packing.PutProp(ctx, c1, crown, 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := packing.PutProp(ctx, c2, crown, 3); err != nil {
		t.Fatalf("put: %v", err)
	}
	pl, err := packing.GetWithContents(ctx, listID)
	if err != nil || pl == nil {
		t.Fatalf("get: %v", err)
	}
	if len(pl.Containers) != 2 || pl.Containers[0].Position != 1 || pl.Containers[1].Position != 2 {
		t.Fatalf("unexpected containers %+v", pl.Containers)
	}
	a := pl.Containers[0]
	if a.TotalWeightKg != 6 || !a.OverWeight {
		t.Fatalf("crate A totals: %v over=%v", a.TotalWeightKg, a.OverWeight)
	}
	b := pl.Containers[1]
	if b.TotalWeightKg != 3 || b.OverWeight {
		t.Fatalf("crate B without max must never be over weight: %+v", b)
	}
	// replacing quantity is an upsert
	if err := packing.PutProp(ctx, c1, sword, 1); err != nil {
		t.Fatalf("put again: %v", err)
	}
	pl, _ = packing.GetWithContents(ctx, listID)
	if pl.Containers[0].TotalWeightKg != 3.5 || pl.Containers[0].OverWeight {
		t.Fatalf("after update: %+v", pl.Containers[0])
	}
	if err := packing.RemoveProp(ctx, c1, 9999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no rows, got %v", err)
	}
	if err := packing.Delete(ctx, listID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c, _ := packing.GetContainer(ctx, c1); c != nil {
		t.Fatalf("containers should be deleted with the list")
	}
}

func TestShoppingFlow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shopping := NewShoppingStore(db)
	owner := createUser(t, db, "owner")
	showID := createShow(t, db, owner, "Tempest")
	otherShow := createShow(t, db, owner, "Lear")

	itemID, err := shopping.Create(ctx, &ShoppingItem{ShowID: showID, Type: "prop", Name: "Goblet", Quantity: 2, RequestedBy: owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	otherItem, _ := shopping.Create(ctx, &ShoppingItem{ShowID: otherShow, Type: "material", Name: "Foam"})
	optID, err := shopping.AddOption(ctx, &ShoppingOption{ItemID: itemID, Shop: "Market", Price: 12.5})
	if err != nil {
		t.Fatalf("option: %v", err)
	}
	if _, err := shopping.AddOption(ctx, &ShoppingOption{ItemID: itemID, Shop: "Online", Price: 9}); err != nil {
		t.Fatalf("option: %v", err)
	}
	if err := shopping.SelectOption(ctx, otherItem, optID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("option from another item must be rejected, got %v", err)
	}
	if err := shopping.SelectOption(ctx, itemID, optID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := shopping.SetStatus(ctx, itemID, ShoppingPending, ShoppingApproved, owner); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := shopping.SetStatus(ctx, itemID, ShoppingPending, ShoppingRejected, owner); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale transition should conflict, got %v", err)
	}
	items, err := shopping.ListByShow(ctx, showID, ShoppingFilter{Status: ShoppingApproved})
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v %v", items, err)
	}
	it := items[0]
	if len(it.Options) != 2 || it.Options[0].Shop != "Online" {
		t.Fatalf("options should be sorted by price: %+v", it.Options)
	}
	if it.SelectedOptionID == nil || *it.SelectedOptionID != optID {
		t.Fatalf("selected option not stored")
	}
	items, _ = shopping.ListByShow(ctx, showID, ShoppingFilter{Type: "material"})
	if len(items) != 0 {
		t.Fatalf("type filter ignored")
	}
	if err := shopping.Delete(ctx, itemID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := shopping.Get(ctx, itemID); got != nil {
		t.Fatalf("item should be gone")
	}
}

func TestInvitationAcceptedOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	invites := NewInvitationsStore(db)
	owner := createUser(t, db, "owner")
	guest := createUser(t, db, "guest")
	showID := createShow(t, db, owner, "Othello")
	inv := &Invitation{TokenID: "tok-1", ShowID: showID, Email: " Guest@Example.com ", RoleID: "crew", InvitedBy: owner, ExpiresAt: time.Now().Add(time.Hour)}
	if _, err := invites.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := invites.GetByToken(ctx, "tok-1")
	if err != nil || got == nil || got.Email != "guest@example.com" || got.Status != InvitationPending {
		t.Fatalf("unexpected invitation %+v %v", got, err)
	}
	if _, err := invites.Accept(ctx, got.ID, &ShowMember{ShowID: showID, UserID: guest, RoleID: got.RoleID, AddedBy: owner}, time.Now()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := invites.Accept(ctx, got.ID, &ShowMember{ShowID: showID, UserID: guest, RoleID: got.RoleID, AddedBy: owner}, time.Now()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second accept should conflict, got %v", err)
	}
	member, err := NewShowsStore(db).Member(ctx, showID, guest)
	if err != nil || member == nil || member.RoleID != "crew" {
		t.Fatalf("guest not seated: %+v %v", member, err)
	}
	if err := invites.Revoke(ctx, got.ID); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("accepted invitation cannot be revoked, got %v", err)
	}
	got, _ = invites.Get(ctx, got.ID)
	if got.AcceptedBy == nil || *got.AcceptedBy != guest || got.AcceptedAt == nil {
		t.Fatalf("acceptance not recorded: %+v", got)
	}
}

func TestInvitationAcceptRollsBackWhenAlreadySeated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	invites := NewInvitationsStore(db)
	shows := NewShowsStore(db)
	owner := createUser(t, db, "owner")
	guest := createUser(t, db, "guest")
	showID := createShow(t, db, owner, "Hamlet")
	if _, err := shows.AddMember(ctx, &ShowMember{ShowID: showID, UserID: guest, RoleID: "viewer", AddedBy: owner}); err != nil {
		t.Fatalf("seat guest: %v", err)
	}
	inv := &Invitation{TokenID: "tok-2", ShowID: showID, Email: "guest@example.com", RoleID: "crew", InvitedBy: owner, ExpiresAt: time.Now().Add(time.Hour)}
	if _, err := invites.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := invites.Accept(ctx, inv.ID, &ShowMember{ShowID: showID, UserID: guest, RoleID: "crew", AddedBy: owner}, time.Now()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	got, _ := invites.Get(ctx, inv.ID)
	if got.Status != InvitationPending || got.AcceptedBy != nil {
		t.Fatalf("invitation must stay pending: %+v", got)
	}
}

func TestCountWithRoleIncludesPendingInvitations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	showID := createShow(t, db, owner, "Macbeth")
	users := NewUsersStore(db)
	inv := &Invitation{TokenID: "tok-3", ShowID: showID, Email: "witch@example.com", RoleID: "custom-witch", InvitedBy: owner, ExpiresAt: time.Now().Add(time.Hour)}
	if _, err := NewInvitationsStore(db).Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n, err := users.CountWithRole(ctx, "custom-witch"); err != nil || n != 1 {
		t.Fatalf("expected the pending invitation to count, got %d %v", n, err)
	}
	if err := NewInvitationsStore(db).Revoke(ctx, inv.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if n, err := users.CountWithRole(ctx, "custom-witch"); err != nil || n != 0 {
		t.Fatalf("revoked invitations do not hold the role, got %d %v", n, err)
	}
}

func TestFeedbackList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fb := NewFeedbackStore(db)
	uid := createUser(t, db, "reporter")
	id, err := fb.Create(ctx, &Feedback{UserID: uid, Kind: "bug", Message: "broken upload"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fb.Create(ctx, &Feedback{UserID: uid, Kind: "idea", Message: "dark mode"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fb.SetStatus(ctx, id, FeedbackClosed); err != nil {
		t.Fatalf("status: %v", err)
	}
	open, _ := fb.List(ctx, FeedbackNew, 0)
	if len(open) != 1 || open[0].Kind != "idea" {
		t.Fatalf("unexpected open feedback %+v", open)
	}
	all, _ := fb.List(ctx, "", 10)
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
}

func TestCountersAcquireRespectsLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	counters := NewCountersStore(db)
	uid := createUser(t, db, "owner")

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted, denied := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := counters.Acquire(ctx, uid, ResourceProps, 0, 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, ErrLimitReached):
				denied++
			default:
				t.Errorf("acquire: %v", err)
			}
		}()
	}
	wg.Wait()
	if granted != 3 || denied != 7 {
		t.Fatalf("granted=%d denied=%d", granted, denied)
	}
	if err := counters.Release(ctx, uid, ResourceProps, 0); err != nil {
		t.Fatalf("release: %v", err)
	}
	if n, _ := counters.Acquire(ctx, uid, ResourceProps, 0, 3); n != 3 {
		t.Fatalf("slot should be reusable, got %d", n)
	}
	for i := 0; i < 5; i++ {
		_ = counters.Release(ctx, uid, ResourceBoards, 0)
	}
	if n, _ := counters.Get(ctx, uid, ResourceBoards, 0); n != 0 {
		t.Fatalf("release must not go below zero, got %d", n)
	}
	for i := 0; i < 5; i++ {
		if _, err := counters.Acquire(ctx, uid, ResourceShows, 0, -1); err != nil {
			t.Fatalf("unlimited acquire: %v", err)
		}
	}
	if _, err := counters.Acquire(ctx, uid, ResourceArchivedShows, 0, 0); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("zero limit must deny, got %v", err)
	}
}

func TestCountersRecount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	counters := NewCountersStore(db)
	shows := NewShowsStore(db)
	owner := createUser(t, db, "owner")
	guest := createUser(t, db, "guest")
	active := createShow(t, db, owner, "A")
	archived := createShow(t, db, owner, "B")
	_ = shows.SetStatus(ctx, archived, ShowStatusActive, ShowStatusArchived, time.Now())
	insertProp(t, db, active, owner, "Lamp", 1)
	insertProp(t, db, active, owner, "Chair", 4)
	_, _ = shows.AddMember(ctx, &ShowMember{ShowID: active, UserID: guest, RoleID: "crew"})
	// drift
	_, _ = counters.Acquire(ctx, owner, ResourceProps, 0, -1)

	got, err := counters.Recount(ctx, owner)
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	want := map[string]int{ResourceShows: 1, ResourceArchivedShows: 1, ResourceProps: 2, ResourcePackingLists: 0, ResourceBoards: 0}
	collab := map[int64]int{}
	for _, c := range got {
		if c.Resource == ResourceCollaborators {
			collab[c.ScopeID] = c.Count
			continue
		}
		if want[c.Resource] != c.Count {
			t.Fatalf("%s: want %d got %d", c.Resource, want[c.Resource], c.Count)
		}
	}
	if collab[active] != 1 || collab[archived] != 0 {
		t.Fatalf("collaborators: %v", collab)
	}
	if n, _ := counters.Get(ctx, owner, ResourceProps, 0); n != 2 {
		t.Fatalf("stored props counter %d", n)
	}
	list, _ := counters.ListByUser(ctx, owner)
	if len(list) != len(got) {
		t.Fatalf("list %d vs recount %d", len(list), len(got))
	}
}

func TestCountersRecountUpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	counters := NewCountersStore(db)
	owner := createUser(t, db, "owner")
	showID := createShow(t, db, owner, "Twelfth Night")

	if n, err := counters.Acquire(ctx, owner, ResourceProps, 0, 1); err != nil || n != 1 {
		t.Fatalf("first slot on a fresh row: %d %v", n, err)
	}
	if _, err := counters.Acquire(ctx, owner, ResourceProps, 0, 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("limit of one must hold, got %v", err)
	}
	if _, err := counters.Acquire(ctx, owner, ResourceCollaborators, showID+100, -1); err != nil {
		t.Fatalf("stale scope: %v", err)
	}
	rowID := func(resource string) int64 {
		var id int64
		if err := db.QueryRowContext(ctx, `SELECT id FROM user_counters WHERE user_id=? AND resource=? AND scope_id=0`, owner, resource).Scan(&id); err != nil {
			t.Fatalf("row %s: %v", resource, err)
		}
		return id
	}
	before := rowID(ResourceProps)
	if _, err := counters.Recount(ctx, owner); err != nil {
		t.Fatalf("recount: %v", err)
	}
	if after := rowID(ResourceProps); after != before {
		t.Fatalf("recount must not recreate rows: %d -> %d", before, after)
	}
	if n, _ := counters.Get(ctx, owner, ResourceProps, 0); n != 0 {
		t.Fatalf("props counter should match the table, got %d", n)
	}
	if n, _ := counters.Get(ctx, owner, ResourceCollaborators, showID+100); n != 0 {
		t.Fatalf("stale collaborator scope kept: %d", n)
	}
	if n, err := counters.Acquire(ctx, owner, ResourceProps, 0, 1); err != nil || n != 1 {
		t.Fatalf("acquire after recount: %d %v", n, err)
	}
}

func TestAuditFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	as := NewAuditStore(db)
	for _, e := range []struct{ user, action string }{
		{"Prospero", "shows.create"},
		{"prospero", "props.create"},
		{"ariel", "shows.update"},
	} {
		if err := as.Log(ctx, e.user, e.action, ""); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	all, err := as.List(ctx, AuditFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d (%v)", len(all), err)
	}
	mine, err := as.List(ctx, AuditFilter{Username: "PROSPERO"})
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 entries for prospero, got %d (%v)", len(mine), err)
	}
	shows, err := as.List(ctx, AuditFilter{ActionPrefix: "shows."})
	if err != nil || len(shows) != 2 {
		t.Fatalf("expected 2 show entries, got %d (%v)", len(shows), err)
	}
	later, err := as.List(ctx, AuditFilter{Since: time.Now().Add(time.Hour)})
	if err != nil || len(later) != 0 {
		t.Fatalf("expected no future entries, got %d (%v)", len(later), err)
	}
	one, err := as.List(ctx, AuditFilter{Limit: 1})
	if err != nil || len(one) != 1 {
		t.Fatalf("expected limit 1, got %d (%v)", len(one), err)
	}
}
