// Package persist is the gateway between the in-memory session and an
// external key-value store. Every operation degrades to a false or empty
// result when the store is unreachable; the session keeps working purely in
// memory.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/session"
)

// Store is the key-value abstraction the gateway writes through. Get reports
// an absent key as (nil, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Logical buckets.
const (
	keyStats     = "cinequiz:stats"
	keyPrefs     = "cinequiz:prefs"
	keyTeams     = "cinequiz:teams:roster"
	keyLastUsed  = "cinequiz:teams:lastused"
	keyPalette   = "cinequiz:teams:palette"
	keySession   = "cinequiz:session:current"
	exportFormat = "cinequiz-export"
)

// SessionMaxAge is the staleness ceiling for an in-progress snapshot; older
// snapshots are treated as absent and purged on read.
const SessionMaxAge = 24 * time.Hour

// Gateway persists the session-adjacent buckets.
type Gateway struct {
	store Store
	now   func() time.Time
}

func NewGateway(store Store) *Gateway {
	return NewGatewayWithClock(store, time.Now)
}

// NewGatewayWithClock allows deterministic staleness checks in tests.
func NewGatewayWithClock(store Store, now func() time.Time) *Gateway {
	return &Gateway{store: store, now: now}
}

// SaveTeams writes the current roster.
func (g *Gateway) SaveTeams(ctx context.Context, teams []domain.Team) bool {
	return g.setJSON(ctx, keyTeams, teams, 0)
}

// LoadTeams reads the saved roster, or nil when absent or unreachable.
func (g *Gateway) LoadTeams(ctx context.Context) []domain.Team {
	var teams []domain.Team
	if !g.getJSON(ctx, keyTeams, &teams) {
		return nil
	}
	return teams
}

// SaveLastUsedTeams remembers team names for quick roster setup next run.
func (g *Gateway) SaveLastUsedTeams(ctx context.Context, names []string) bool {
	return g.setJSON(ctx, keyLastUsed, names, 0)
}

func (g *Gateway) LoadLastUsedTeams(ctx context.Context) []string {
	var names []string
	if !g.getJSON(ctx, keyLastUsed, &names) {
		return nil
	}
	return names
}

// SavePalette stores the team color palette.
func (g *Gateway) SavePalette(ctx context.Context, colors []string) bool {
	return g.setJSON(ctx, keyPalette, colors, 0)
}

func (g *Gateway) LoadPalette(ctx context.Context) []string {
	var colors []string
	if !g.getJSON(ctx, keyPalette, &colors) {
		return nil
	}
	return colors
}

// SavePreferences stores user preferences.
func (g *Gateway) SavePreferences(ctx context.Context, prefs map[string]string) bool {
	return g.setJSON(ctx, keyPrefs, prefs, 0)
}

func (g *Gateway) LoadPreferences(ctx context.Context) map[string]string {
	var prefs map[string]string
	if !g.getJSON(ctx, keyPrefs, &prefs) {
		return nil
	}
	return prefs
}

// RecordRunStats appends one completed-run summary to the statistics bucket.
func (g *Gateway) RecordRunStats(ctx context.Context, stats domain.RunStats) bool {
	existing := g.LoadRunStats(ctx)
	return g.setJSON(ctx, keyStats, append(existing, stats), 0)
}

func (g *Gateway) LoadRunStats(ctx context.Context) []domain.RunStats {
	var stats []domain.RunStats
	if !g.getJSON(ctx, keyStats, &stats) {
		return nil
	}
	return stats
}

// SaveSession persists the single in-progress snapshot.
func (g *Gateway) SaveSession(ctx context.Context, snap domain.Snapshot) bool {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = g.now()
	}
	return g.setJSON(ctx, keySession, snap, SessionMaxAge)
}

// LoadSession reads the in-progress snapshot. Snapshots older than
// SessionMaxAge are treated as absent and purged.
func (g *Gateway) LoadSession(ctx context.Context) *domain.Snapshot {
	var snap domain.Snapshot
	if !g.getJSON(ctx, keySession, &snap) {
		return nil
	}
	if g.now().Sub(snap.Timestamp) > SessionMaxAge {
		_ = g.store.Delete(ctx, keySession)
		return nil
	}
	return &snap
}

// ClearSession drops the in-progress snapshot.
func (g *Gateway) ClearSession(ctx context.Context) bool {
	return g.store.Delete(ctx, keySession) == nil
}

// AutoSave persists the session only when it is in host mode with at least
// one team. Participant progress and team-less host state are never
// auto-persisted.
func (g *Gateway) AutoSave(ctx context.Context, sess *session.Session) bool {
	snap := sess.Snapshot()
	if snap.Mode != domain.ModeHost || len(snap.Teams) == 0 {
		return false
	}
	return g.SaveSession(ctx, snap)
}

// RestoreInterruptedSession loads the persisted snapshot and applies it to
// the session. The session validates and, if needed, repairs the snapshot;
// corruption leaves the in-memory state untouched and is reported through the
// session error field.
func (g *Gateway) RestoreInterruptedSession(ctx context.Context, sess *session.Session) bool {
	snap := g.LoadSession(ctx)
	if snap == nil {
		return false
	}
	return sess.RestoreSnapshot(snap)
}

// exportDocument is the full bucket set serialized as one document.
type exportDocument struct {
	Format    string            `json:"format"`
	Version   int               `json:"version"`
	Stats     []domain.RunStats `json:"stats,omitempty"`
	Prefs     map[string]string `json:"prefs,omitempty"`
	Teams     []domain.Team     `json:"teams,omitempty"`
	LastUsed  []string          `json:"lastUsedTeams,omitempty"`
	Palette   []string          `json:"palette,omitempty"`
	Session   *domain.Snapshot  `json:"session,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Export serializes every bucket as one JSON document.
func (g *Gateway) Export(ctx context.Context) ([]byte, error) {
	doc := exportDocument{
		Format:    exportFormat,
		Version:   domain.SnapshotVersion,
		Stats:     g.LoadRunStats(ctx),
		Prefs:     g.LoadPreferences(ctx),
		Teams:     g.LoadTeams(ctx),
		LastUsed:  g.LoadLastUsedTeams(ctx),
		Palette:   g.LoadPalette(ctx),
		Session:   g.LoadSession(ctx),
		Timestamp: g.now(),
	}
	return json.Marshal(doc)
}

// Import replaces the bucket set from an exported document. Malformed input
// fails before any bucket is written.
func (g *Gateway) Import(ctx context.Context, data []byte) error {
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse import: %w", err)
	}
	if doc.Format != exportFormat {
		return fmt.Errorf("parse import: unrecognized format %q", doc.Format)
	}

	if doc.Stats != nil && !g.setJSON(ctx, keyStats, doc.Stats, 0) {
		return domain.ErrStorageUnavailable
	}
	if doc.Prefs != nil && !g.setJSON(ctx, keyPrefs, doc.Prefs, 0) {
		return domain.ErrStorageUnavailable
	}
	if doc.Teams != nil && !g.setJSON(ctx, keyTeams, doc.Teams, 0) {
		return domain.ErrStorageUnavailable
	}
	if doc.LastUsed != nil && !g.setJSON(ctx, keyLastUsed, doc.LastUsed, 0) {
		return domain.ErrStorageUnavailable
	}
	if doc.Palette != nil && !g.setJSON(ctx, keyPalette, doc.Palette, 0) {
		return domain.ErrStorageUnavailable
	}
	if doc.Session != nil && !g.SaveSession(ctx, *doc.Session) {
		return domain.ErrStorageUnavailable
	}
	return nil
}

func (g *Gateway) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	if err := g.store.Set(ctx, key, data, ttl); err != nil {
		log.Printf("persist: set %s: %v", key, err)
		return false
	}
	return true
}

func (g *Gateway) getJSON(ctx context.Context, key string, out interface{}) bool {
	data, err := g.store.Get(ctx, key)
	if err != nil {
		log.Printf("persist: get %s: %v", key, err)
		return false
	}
	if data == nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
