package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mash-protocol/mash-subs/pkg/log"
)

// Stats holds aggregate statistics about a lifecycle log.
type Stats struct {
	TotalEvents      int
	EventsByEntity   map[log.Entity]int
	EventsByCategory map[log.Category]int
	DisposeReasons   map[string]int
	RejectReasons    map[string]int
	Connections      map[string]*ConnectionStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
	Registered int
	Disposed   int
	Rejected   int
	Closed     bool
}

// Open returns the number of sessions registered but never disposed.
func (c *ConnectionStats) Open() int {
	return c.Registered - c.Disposed
}

// Collect reads the events of path matching opts and aggregates them.
func Collect(path string, opts FilterOptions) (*Stats, error) {
	reader, err := openFiltered(path, opts)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	stats := &Stats{
		EventsByEntity:   make(map[log.Entity]int),
		EventsByCategory: make(map[log.Category]int),
		DisposeReasons:   make(map[string]int),
		RejectReasons:    make(map[string]int),
		Connections:      make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByEntity[event.Entity]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}

	if event.Error != nil {
		s.Errors++
		return
	}
	sc := event.StateChange
	if sc == nil {
		return
	}

	switch event.Entity {
	case log.EntityConnection:
		if sc.NewState == log.StateClosed {
			conn.Closed = true
		}
	case log.EntitySession:
		switch sc.NewState {
		case log.StateRegistered:
			conn.Registered++
		case log.StateDisposed:
			conn.Disposed++
			s.DisposeReasons[sc.Reason]++
		case log.StateRejected:
			conn.Rejected++
			s.RejectReasons[sc.Reason]++
		}
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, opts FilterOptions, w io.Writer) error {
	stats, err := Collect(path, opts)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Subscription Lifecycle Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Entity:")
	for _, e := range []log.Entity{log.EntityConnection, log.EntityRegistry, log.EntitySession} {
		if count := stats.EventsByEntity[e]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", e.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	printReasons(w, "Dispose Reasons:", stats.DisposeReasons)
	printReasons(w, "Reject Reasons:", stats.RejectReasons)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.RemoteAddr != "" {
				fmt.Fprintf(w, "           Remote: %s\n", c.stats.RemoteAddr)
			}
			fmt.Fprintf(w, "           Sessions: %d registered, %d disposed, %d rejected\n",
				c.stats.Registered, c.stats.Disposed, c.stats.Rejected)
			if c.stats.Closed && c.stats.Open() != 0 {
				fmt.Fprintf(w, "           WARNING: %d sessions not disposed after close\n", c.stats.Open())
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func printReasons(w io.Writer, title string, reasons map[string]int) {
	if len(reasons) == 0 {
		return
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s %d\n", k+":", reasons[k])
	}
	fmt.Fprintln(w)
}
