package queue

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/reelqueue/reelqueue/internal/domain"
	"github.com/reelqueue/reelqueue/internal/tablestore"
)

// fakeTable simulates the remote table end to end: it keeps rows, assigns
// ids, honors createdAt ordering, and can be forced to fail.
type fakeTable struct {
	rows   []movieRow
	nextID int64
	fail   error

	listCalls   int
	insertCalls int
	deleteCalls int
}

func newFakeTable() *fakeTable {
	return &fakeTable{nextID: 1}
}

func (f *fakeTable) ListAll(ctx context.Context, table, orderField string, ascending bool, dest any) error {
	f.listCalls++
	if f.fail != nil {
		return f.fail
	}
	if table != "movies" || orderField != "createdAt" || !ascending {
		return &tablestore.Error{Kind: tablestore.KindRemoteRejected, Op: "listAll", Status: 400}
	}
	ordered := make([]movieRow, len(f.rows))
	copy(ordered, f.rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return roundTrip(ordered, dest)
}

func (f *fakeTable) Insert(ctx context.Context, table string, row, created any) error {
	f.insertCalls++
	if f.fail != nil {
		return f.fail
	}
	var stored movieRow
	if err := roundTrip(row, &stored); err != nil {
		return err
	}
	stored.ID = f.nextID
	f.nextID++
	f.rows = append(f.rows, stored)
	return roundTrip(stored, created)
}

func (f *fakeTable) DeleteWhere(ctx context.Context, table, field, value string) error {
	f.deleteCalls++
	if f.fail != nil {
		return f.fail
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || field != "id" {
		return &tablestore.Error{Kind: tablestore.KindRemoteRejected, Op: "deleteWhere", Status: 400}
	}
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

// roundTrip copies a value through JSON the same way the real client decodes
// wire payloads.
func roundTrip(src, dest any) error {
	payload, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

func newTestStore(table TableClient) *Store {
	return New(table, log.New(io.Discard, "", 0))
}

func TestReloadReplacesListInCreatedAtOrder(t *testing.T) {
	table := newFakeTable()
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	// Deliberately inserted out of order.
	table.rows = []movieRow{
		{ID: 3, Title: "Third", CreatedAt: base.Add(2 * time.Hour)},
		{ID: 1, Title: "First", CreatedAt: base},
		{ID: 2, Title: "Second", CreatedAt: base.Add(time.Hour)},
	}
	table.nextID = 4

	store := newTestStore(table)
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snapshot))
	}
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].CreatedAt.Before(snapshot[i-1].CreatedAt) {
			t.Fatalf("snapshot not sorted ascending by createdAt: %+v", snapshot)
		}
	}

	current, ok := store.Current()
	if !ok || current.Title != "First" {
		t.Fatalf("current = %+v, want First", current)
	}
	upcoming := store.Upcoming()
	if len(upcoming) != 2 || upcoming[0].Title != "Second" || upcoming[1].Title != "Third" {
		t.Fatalf("upcoming = %+v", upcoming)
	}
	if store.Loading() {
		t.Fatalf("loading flag still set after reload")
	}
}

func TestReloadFailureKeepsListAndClearsLoading(t *testing.T) {
	table := newFakeTable()
	table.rows = []movieRow{{ID: 1, Title: "Kept", CreatedAt: time.Now().UTC()}}

	store := newTestStore(table)
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("first reload: %v", err)
	}

	table.fail = &tablestore.Error{Kind: tablestore.KindTransport, Op: "listAll"}
	if err := store.Reload(context.Background()); err == nil {
		t.Fatalf("expected reload error")
	}

	if got := store.Snapshot(); len(got) != 1 || got[0].Title != "Kept" {
		t.Fatalf("failed reload mutated the list: %+v", got)
	}
	if store.Loading() {
		t.Fatalf("loading flag not cleared on failure")
	}
	if store.LastError() == "" {
		t.Fatalf("expected last error to be recorded")
	}
}

func TestAddEmptyTitleSkipsNetwork(t *testing.T) {
	table := newFakeTable()
	store := newTestStore(table)

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := store.Add(context.Background(), domain.DraftEntry{Title: title}); err != ErrEmptyTitle {
			t.Fatalf("Add(%q) error = %v, want ErrEmptyTitle", title, err)
		}
	}
	if table.insertCalls != 0 {
		t.Fatalf("empty-title add issued %d insert calls", table.insertCalls)
	}
	if got := store.Snapshot(); len(got) != 0 {
		t.Fatalf("list changed on rejected add: %+v", got)
	}
}

func TestAddAppendsServerRow(t *testing.T) {
	table := newFakeTable()
	table.nextID = 42

	store := newTestStore(table)
	entry, err := store.Add(context.Background(), domain.DraftEntry{
		Title:       " Inception ",
		Genre:       "Sci-Fi",
		Runtime:     "148 min",
		AddedBy:     "mia",
		PosterURL:   "https://image.tmdb.org/t/p/w500/p.jpg",
		TmdbID:      "27205",
		ReleaseYear: "2010",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if entry.ID != 42 {
		t.Fatalf("entry.ID = %d, want server-assigned 42", entry.ID)
	}
	if entry.Title != "Inception" {
		t.Fatalf("title = %q, want trimmed Inception", entry.Title)
	}
	if entry.Priority != string(domain.PriorityMedium) {
		t.Fatalf("priority = %q, want default medium", entry.Priority)
	}
	if entry.CreatedAt.IsZero() {
		t.Fatalf("createdAt not stamped")
	}
	if entry.AddedBy != "mia" || entry.TmdbID != "27205" || entry.ReleaseYear != "2010" {
		t.Fatalf("mapped fields lost: %+v", entry)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 1 || snapshot[len(snapshot)-1].ID != 42 {
		t.Fatalf("server row not appended: %+v", snapshot)
	}
}

func TestAddFailureLeavesListUnchanged(t *testing.T) {
	table := newFakeTable()
	store := newTestStore(table)
	if _, err := store.Add(context.Background(), domain.DraftEntry{Title: "Heat"}); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	before := store.Snapshot()

	table.fail = &tablestore.Error{Kind: tablestore.KindRemoteRejected, Op: "insert", Status: 500}
	if _, err := store.Add(context.Background(), domain.DraftEntry{Title: "Ronin"}); err == nil {
		t.Fatalf("expected add failure")
	}

	after := store.Snapshot()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatalf("failed add mutated list: before=%+v after=%+v", before, after)
	}
	if store.LastError() == "" {
		t.Fatalf("expected error message recorded")
	}
}

func TestRemoveDeletesExactlyOne(t *testing.T) {
	table := newFakeTable()
	store := newTestStore(table)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"One", "Two", "Three"} {
		entry, err := store.Add(ctx, domain.DraftEntry{Title: title})
		if err != nil {
			t.Fatalf("seed %s: %v", title, err)
		}
		ids = append(ids, entry.ID)
	}

	if err := store.Remove(ctx, ids[1]); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snapshot))
	}
	if snapshot[0].Title != "One" || snapshot[1].Title != "Three" {
		t.Fatalf("relative order broken: %+v", snapshot)
	}
	if table.deleteCalls != 1 {
		t.Fatalf("delete calls = %d, want 1", table.deleteCalls)
	}
}

func TestRemoveFailureLeavesListUntouched(t *testing.T) {
	table := newFakeTable()
	store := newTestStore(table)
	ctx := context.Background()

	entry, err := store.Add(ctx, domain.DraftEntry{Title: "Keeper"})
	if err != nil {
		t.Fatalf("seed add: %v", err)
	}
	before := store.Snapshot()

	table.fail = &tablestore.Error{Kind: tablestore.KindTransport, Op: "deleteWhere"}
	if err := store.Remove(ctx, entry.ID); err == nil {
		t.Fatalf("expected remove failure")
	}

	after := store.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("failed remove mutated list: before=%+v after=%+v", before, after)
	}
	if store.LastError() == "" {
		t.Fatalf("expected error message recorded")
	}
}

func TestAddThenReloadRoundTrip(t *testing.T) {
	table := newFakeTable()
	store := newTestStore(table)
	ctx := context.Background()

	added, err := store.Add(ctx, domain.DraftEntry{
		Title:       "Inception",
		Genre:       "Sci-Fi",
		Runtime:     "148 min",
		AddedBy:     "mia",
		Priority:    "high",
		PosterURL:   "https://image.tmdb.org/t/p/w500/p.jpg",
		TmdbID:      "27205",
		ReleaseYear: "2010",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A second store over the same backing data must see the same entry.
	other := newTestStore(table)
	if err := other.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	snapshot := other.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snapshot))
	}
	got := snapshot[0]
	if got.ID != added.ID {
		t.Fatalf("id changed across round trip: %d vs %d", got.ID, added.ID)
	}
	if got != added {
		t.Fatalf("round trip mismatch:\nadded:  %+v\nloaded: %+v", added, got)
	}
}

func TestDraftToRowFieldMapping(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	row := draftToRow(domain.DraftEntry{
		Title:       "Inception",
		Genre:       "Sci-Fi",
		Runtime:     "148 min",
		AddedBy:     "mia",
		Priority:    "high",
		PosterURL:   "https://img/p.jpg",
		TmdbID:      "27205",
		ReleaseYear: "2010",
	}, createdAt)

	payload, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(payload, &wire); err != nil {
		t.Fatalf("unmarshal row: %v", err)
	}

	for field, want := range map[string]string{
		"title":        "Inception",
		"genre":        "Sci-Fi",
		"runtime":      "148 min",
		"added_by":     "mia",
		"priority":     "high",
		"poster_url":   "https://img/p.jpg",
		"tmdb_id":      "27205",
		"release_year": "2010",
	} {
		got, ok := wire[field].(string)
		if !ok || got != want {
			t.Fatalf("wire field %q = %v, want %q", field, wire[field], want)
		}
	}
	if _, ok := wire["createdAt"]; !ok {
		t.Fatalf("createdAt missing from wire payload: %v", wire)
	}
	if _, ok := wire["id"]; ok {
		t.Fatalf("client-generated id leaked into insert payload: %v", wire)
	}
	for _, camel := range []string{"addedBy", "posterUrl", "tmdbId", "releaseYear"} {
		if _, ok := wire[camel]; ok {
			t.Fatalf("unmapped camel field %q on the wire: %v", camel, wire)
		}
	}
}

func BenchmarkStoreAdd(b *testing.B) {
	table := newFakeTable()
	store := newTestStore(table)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Add(ctx, domain.DraftEntry{Title: "Bench Movie"}); err != nil {
			b.Fatalf("add: %v", err)
		}
	}
}
