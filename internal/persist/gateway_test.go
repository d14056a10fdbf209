package persist_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/infra/memory"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/persist"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/session"
)

func TestTeamBucketsRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())

	teams := []domain.Team{{ID: "t1", Name: "Alpha", Color: "#abc"}}
	if !gw.SaveTeams(ctx, teams) {
		t.Fatalf("save teams failed")
	}
	loaded := gw.LoadTeams(ctx)
	if len(loaded) != 1 || loaded[0].Name != "Alpha" {
		t.Fatalf("expected roster loaded, got %+v", loaded)
	}

	if !gw.SaveLastUsedTeams(ctx, []string{"Alpha", "Bravo"}) {
		t.Fatalf("save last-used failed")
	}
	if names := gw.LoadLastUsedTeams(ctx); len(names) != 2 {
		t.Fatalf("expected 2 last-used names, got %v", names)
	}

	if !gw.SavePalette(ctx, []string{"#abc", "#def"}) {
		t.Fatalf("save palette failed")
	}
	if colors := gw.LoadPalette(ctx); len(colors) != 2 {
		t.Fatalf("expected palette loaded, got %v", colors)
	}
}

func TestSessionStalenessCeiling(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	gw := persist.NewGatewayWithClock(memory.NewKVStore(), clock)

	snap := domain.Snapshot{
		Mode:      domain.ModeHost,
		Teams:     []domain.Team{{ID: "t1", Name: "Alpha"}},
		Timestamp: now,
		Version:   domain.SnapshotVersion,
	}
	if !gw.SaveSession(ctx, snap) {
		t.Fatalf("save session failed")
	}

	now = now.Add(23 * time.Hour)
	if gw.LoadSession(ctx) == nil {
		t.Fatalf("expected snapshot alive within 24h")
	}

	now = now.Add(2 * time.Hour)
	if gw.LoadSession(ctx) != nil {
		t.Fatalf("expected stale snapshot treated as absent")
	}
	// Stale snapshot is purged, not just skipped.
	now = snap.Timestamp
	if gw.LoadSession(ctx) != nil {
		t.Fatalf("expected stale snapshot purged on read")
	}
}

func TestAutoSaveGating(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())

	sess := session.New()
	if gw.AutoSave(ctx, sess) {
		t.Fatalf("expected participant mode never auto-saved")
	}

	sess.SetMode("host") // synthesizes a default team
	if !gw.AutoSave(ctx, sess) {
		t.Fatalf("expected host mode with a team auto-saved")
	}
	if gw.LoadSession(ctx) == nil {
		t.Fatalf("expected snapshot persisted")
	}
}

func TestRestoreInterruptedSession(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())

	saved := session.New()
	saved.SetMode("host")
	saved.CreateTeam("Bravo", "")
	if !gw.AutoSave(ctx, saved) {
		t.Fatalf("auto-save failed")
	}

	restored := session.New()
	if !gw.RestoreInterruptedSession(ctx, restored) {
		t.Fatalf("restore failed: %s", restored.Err())
	}
	if restored.Mode() != domain.ModeHost || len(restored.Teams()) != 2 {
		t.Fatalf("expected restored host session with 2 teams, got %s %d", restored.Mode(), len(restored.Teams()))
	}

	empty := session.New()
	blank := persist.NewGateway(memory.NewKVStore())
	if blank.RestoreInterruptedSession(ctx, empty) {
		t.Fatalf("expected restore without a snapshot to report false")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())

	gw.SaveTeams(ctx, []domain.Team{{ID: "t1", Name: "Alpha"}})
	gw.SavePalette(ctx, []string{"#abc"})
	gw.SavePreferences(ctx, map[string]string{"theme": "dark"})

	doc, err := gw.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	target := persist.NewGateway(memory.NewKVStore())
	if err := target.Import(ctx, doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	if teams := target.LoadTeams(ctx); len(teams) != 1 || teams[0].Name != "Alpha" {
		t.Fatalf("expected roster imported, got %+v", teams)
	}
	if prefs := target.LoadPreferences(ctx); prefs["theme"] != "dark" {
		t.Fatalf("expected prefs imported, got %v", prefs)
	}
}

func TestImportRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())
	gw.SaveTeams(ctx, []domain.Team{{ID: "t1", Name: "Alpha"}})

	for _, input := range [][]byte{[]byte("not json"), []byte(`{"format":"something-else"}`)} {
		if err := gw.Import(ctx, input); err == nil {
			t.Fatalf("expected import of %q to fail", input)
		}
	}
	// Existing buckets untouched.
	if teams := gw.LoadTeams(ctx); len(teams) != 1 {
		t.Fatalf("expected roster untouched, got %+v", teams)
	}
}

func TestDegradesWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(failingStore{})

	if gw.SaveTeams(ctx, []domain.Team{{ID: "t1", Name: "Alpha"}}) {
		t.Fatalf("expected save to degrade to false")
	}
	if gw.LoadTeams(ctx) != nil {
		t.Fatalf("expected load to degrade to nil")
	}
	if gw.LoadSession(ctx) != nil {
		t.Fatalf("expected session load to degrade to nil")
	}

	sess := session.New()
	sess.SetMode("host")
	if gw.AutoSave(ctx, sess) {
		t.Fatalf("expected auto-save to degrade to false")
	}
	// The in-memory session keeps working regardless.
	if id := sess.CreateTeam("Bravo", ""); id == "" {
		t.Fatalf("expected session usable after storage failure: %s", sess.Err())
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestRunStatsAppend(t *testing.T) {
	ctx := context.Background()
	gw := persist.NewGateway(memory.NewKVStore())

	first := domain.RunStats{Winner: "Alpha", TeamCount: 2, QuestionCount: 3, FinishedAt: time.Now()}
	second := domain.RunStats{Winner: "Bravo", TeamCount: 2, QuestionCount: 3, FinishedAt: time.Now()}
	if !gw.RecordRunStats(ctx, first) || !gw.RecordRunStats(ctx, second) {
		t.Fatalf("record stats failed")
	}
	stats := gw.LoadRunStats(ctx)
	if len(stats) != 2 || stats[0].Winner != "Alpha" || stats[1].Winner != "Bravo" {
		t.Fatalf("expected appended stats, got %+v", stats)
	}
}
