package commands

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mash-protocol/mash-subs/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.slog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func stateEvent(ts time.Time, connID string, entity log.Entity, subID, oldState, newState, reason string) log.Event {
	return log.Event{
		Timestamp:      ts,
		ConnectionID:   connID,
		Entity:         entity,
		Category:       log.CategoryState,
		SubscriptionID: subID,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// lifecycleEvents is one connection that registers three sessions, rejects a
// duplicate, sees one dispose failure and closes.
func lifecycleEvents() []log.Event {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }
	conn := "abc12345-6789-0123-4567-890abcdef012"

	connected := stateEvent(at(0), conn, log.EntityConnection, "", "", log.StateConnected, "")
	connected.RemoteAddr = "192.0.2.1:4711"

	return []log.Event{
		connected,
		stateEvent(at(1), conn, log.EntitySession, "a", "", log.StateRegistered, ""),
		stateEvent(at(2), conn, log.EntitySession, "b", "", log.StateRegistered, ""),
		stateEvent(at(3), conn, log.EntitySession, "b", "", log.StateRejected, "duplicate"),
		stateEvent(at(4), conn, log.EntitySession, "c", "", log.StateRegistered, ""),
		stateEvent(at(5), conn, log.EntitySession, "a", log.StateRegistered, log.StateDisposed, "completed"),
		stateEvent(at(6), conn, log.EntitySession, "b", log.StateRegistered, log.StateDisposed, "teardown"),
		{
			Timestamp:      at(6),
			ConnectionID:   conn,
			Entity:         log.EntitySession,
			Category:       log.CategoryError,
			SubscriptionID: "c",
			Error:          &log.ErrorEventData{Message: "dispose subscription \"c\": boom", Context: "teardown"},
		},
		stateEvent(at(6), conn, log.EntitySession, "c", log.StateRegistered, log.StateDisposed, "teardown"),
		stateEvent(at(6), conn, log.EntityRegistry, "", log.StateActive, log.StateDisposed, "sessions=2 failures=1"),
		stateEvent(at(7), conn, log.EntityConnection, "", log.StateConnected, log.StateClosed, "closed"),
		stateEvent(at(8), "other-conn", log.EntityConnection, "", "", log.StateConnected, ""),
	}
}

func TestFormatStateEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := stateEvent(ts, "abc12345-6789-0123-4567-890abcdef012", log.EntitySession, "temp",
		log.StateRegistered, log.StateDisposed, "completed")

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[conn:abc12345]",
		"SESSION",
		"State",
		"Subscription: temp",
		"REGISTERED -> DISPOSED",
		"Reason: completed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "short",
		Entity:       log.EntitySession,
		Category:     log.CategoryError,
		Error:        &log.ErrorEventData{Message: "boom", Context: "teardown"},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "[conn:short]") {
		t.Errorf("short connection ids should be kept whole, got: %s", output)
	}
	if !strings.Contains(output, "Message: boom") || !strings.Contains(output, "Context: teardown") {
		t.Errorf("expected error details, got: %s", output)
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{SubID: "b"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if got := strings.Count(output, "Subscription: b"); got != 3 {
		t.Errorf("expected 3 events for subscription b, got %d:\n%s", got, output)
	}
	if strings.Contains(output, "Subscription: a") {
		t.Errorf("filter leaked subscription a:\n%s", output)
	}
}

func TestRunViewInvalidFilter(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())

	if err := RunView(path, FilterOptions{Entity: "zone"}, io.Discard); err == nil {
		t.Error("expected error for unknown entity")
	}
	if err := RunView(path, FilterOptions{TimeStart: "yesterday"}, io.Discard); err == nil {
		t.Error("expected error for malformed time-start")
	}
	if err := RunView(filepath.Join(t.TempDir(), "missing.slog"), FilterOptions{}, io.Discard); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	opts := FilterOptions{
		ConnID:    "conn-1",
		SubID:     "sub-1",
		Entity:    "session",
		Category:  "error",
		TimeStart: "2026-03-02T09:00:00Z",
		TimeEnd:   "2026-03-02T10:00:00Z",
	}

	filter, err := opts.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if filter.Entity == nil || *filter.Entity != log.EntitySession {
		t.Errorf("expected session entity, got %v", filter.Entity)
	}
	if filter.Category == nil || *filter.Category != log.CategoryError {
		t.Errorf("expected error category, got %v", filter.Category)
	}
	if filter.TimeStart == nil || filter.TimeEnd == nil {
		t.Fatal("expected time range to be set")
	}
	if !filter.TimeEnd.After(*filter.TimeStart) {
		t.Errorf("time-end %v should be after time-start %v", filter.TimeEnd, filter.TimeStart)
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.slog")

	count, err := RunFilter(path, outPath, FilterOptions{Category: "error"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event written, got %d", count)
	}

	reader, err := log.NewReader(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if event.Error == nil || event.SubscriptionID != "c" {
		t.Errorf("unexpected event: %+v", event)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", FilterOptions{Entity: "registry"}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and 1 row, got %d records", len(records))
	}
	row := records[1]
	if row[3] != "REGISTRY" || row[6] != log.StateDisposed || row[7] != "sessions=2 failures=1" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", FilterOptions{ConnID: "other-conn"}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"ConnectionID":"other-conn"`) {
		t.Errorf("unexpected line: %s", lines[0])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	if err := RunExport(path, "xml", FilterOptions{}, io.Discard); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCollectStats(t *testing.T) {
	path := createTestLogFile(t, lifecycleEvents())

	stats, err := Collect(path, FilterOptions{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if stats.TotalEvents != 12 {
		t.Errorf("expected 12 events, got %d", stats.TotalEvents)
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
	if stats.EventsByEntity[log.EntitySession] != 8 {
		t.Errorf("expected 8 session events, got %d", stats.EventsByEntity[log.EntitySession])
	}
	if stats.DisposeReasons["teardown"] != 2 || stats.DisposeReasons["completed"] != 1 {
		t.Errorf("unexpected dispose reasons: %v", stats.DisposeReasons)
	}
	if stats.RejectReasons["duplicate"] != 1 {
		t.Errorf("unexpected reject reasons: %v", stats.RejectReasons)
	}
	if len(stats.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(stats.Connections))
	}

	conn := stats.Connections["abc12345-6789-0123-4567-890abcdef012"]
	if conn.Registered != 3 || conn.Disposed != 3 || conn.Rejected != 1 {
		t.Errorf("unexpected session counts: %+v", conn)
	}
	if conn.Open() != 0 || !conn.Closed {
		t.Errorf("expected closed connection with no open sessions: %+v", conn)
	}
	if conn.RemoteAddr != "192.0.2.1:4711" {
		t.Errorf("expected remote address, got %q", conn.RemoteAddr)
	}
	if got := conn.LastSeen.Sub(conn.FirstSeen); got != 7*time.Second {
		t.Errorf("expected 7s lifetime, got %v", got)
	}
}

func TestRunStatsReportsLeaks(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []log.Event{
		stateEvent(base, "leaky-conn", log.EntityConnection, "", "", log.StateConnected, ""),
		stateEvent(base, "leaky-conn", log.EntitySession, "a", "", log.StateRegistered, ""),
		stateEvent(base, "leaky-conn", log.EntityConnection, "", log.StateConnected, log.StateClosed, "closed"),
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Total Events: 3") {
		t.Errorf("expected total events, got:\n%s", output)
	}
	if !strings.Contains(output, "WARNING: 1 sessions not disposed after close") {
		t.Errorf("expected leak warning, got:\n%s", output)
	}
}
