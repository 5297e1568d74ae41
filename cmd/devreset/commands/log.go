package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/log"
)

// LogCommand creates the log command tree.
func LogCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Inspect protocol capture files (.dlog)",
		Commands: []*cli.Command{
			logViewCommand(),
			logStatsCommand(),
			logExportCommand(),
		},
	}
}

func logViewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Print events in human-readable form",
		ArgsUsage: "<file.dlog>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "layer", Usage: "Filter by layer (transport, wire, handshake)"},
			&cli.StringFlag{Name: "direction", Usage: "Filter by direction (in, out)"},
			&cli.StringFlag{Name: "category", Usage: "Filter by category (message, state, error)"},
			&cli.StringFlag{Name: "session", Usage: "Filter by reset session ID"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path, err := logPath(cmd)
			if err != nil {
				return err
			}
			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return RunView(path, filter, cmd.Root().Writer)
		},
	}
}

func logStatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Summarize a capture",
		ArgsUsage: "<file.dlog>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path, err := logPath(cmd)
			if err != nil {
				return err
			}
			return RunStats(path, cmd.Root().Writer)
		},
	}
}

func logExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a capture as JSON lines or CSV",
		ArgsUsage: "<file.dlog>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "Output format (jsonl, csv)", Value: "jsonl"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default: stdout)"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path, err := logPath(cmd)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if out := cmd.String("output"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return RunExport(path, cmd.String("format"), w)
		},
	}
}

func logPath(cmd *cli.Command) (string, error) {
	if cmd.NArg() < 1 {
		return "", errors.New("log file path required")
	}
	return cmd.Args().First(), nil
}

func filterFromFlags(cmd *cli.Command) (log.Filter, error) {
	filter := log.Filter{SessionID: cmd.String("session")}
	if s := cmd.String("layer"); s != "" {
		l, ok := log.ParseLayer(strings.ToUpper(s))
		if !ok {
			return filter, fmt.Errorf("invalid layer: %s (must be transport, wire, or handshake)", s)
		}
		filter.Layer = &l
	}
	if s := cmd.String("direction"); s != "" {
		d, err := parseDirection(s)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if s := cmd.String("category"); s != "" {
		c, err := parseCategory(s)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// RunView prints matching events.
func RunView(path string, filter log.Filter, w io.Writer) error {
	return log.Each(path, filter, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
}

// eventLabel names the payload of an event.
func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		if event.Message.Debug {
			return event.Message.Type.String() + " (debug)"
		}
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, shortID(event.ConnectionID),
		event.Direction, event.Layer, eventLabel(event))

	if event.SessionID != "" {
		fmt.Fprintf(w, "  Session: %s\n", event.SessionID)
	}
	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
	case event.Message != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Message.Size)
		if event.Message.RoundTrip != nil {
			fmt.Fprintf(w, "  Round trip: %s\n", formatDuration(*event.Message.RoundTrip))
		}
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		e := event.Error
		fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
		fmt.Fprintf(w, "  Message: %s\n", e.Message)
		if e.Code != nil {
			fmt.Fprintf(w, "  Code: %d\n", *e.Code)
		}
		if e.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", e.Context)
		}
	}
	fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// Stats holds aggregate counts for a capture.
type Stats struct {
	TotalEvents int
	ByLayer     map[log.Layer]int
	ByCategory  map[log.Category]int
	Sessions    map[string]*SessionStats
	Errors      int
	Start, End  time.Time
}

// SessionStats summarizes one reset session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	FinalState string
}

// CollectStats reads a capture and aggregates it.
func CollectStats(path string) (*Stats, error) {
	stats := &Stats{
		ByLayer:    make(map[log.Layer]int),
		ByCategory: make(map[log.Category]int),
		Sessions:   make(map[string]*SessionStats),
	}
	err := log.Each(path, log.Filter{}, func(event log.Event) error {
		stats.TotalEvents++
		stats.ByLayer[event.Layer]++
		stats.ByCategory[event.Category]++
		if event.Error != nil {
			stats.Errors++
		}
		if stats.Start.IsZero() || event.Timestamp.Before(stats.Start) {
			stats.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.End) {
			stats.End = event.Timestamp
		}

		if event.SessionID == "" {
			return nil
		}
		s, ok := stats.Sessions[event.SessionID]
		if !ok {
			s = &SessionStats{FirstSeen: event.Timestamp}
			stats.Sessions[event.SessionID] = s
		}
		s.Events++
		s.LastSeen = event.Timestamp
		if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntityHandshake {
			s.FinalState = sc.NewState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats prints capture statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Reset Protocol Log Statistics ===")
	fmt.Fprintln(w)
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", stats.End.Sub(stats.Start).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", stats.TotalEvents)

	fmt.Fprintln(w, "Events by Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerHandshake} {
		if n := stats.ByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if n := stats.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	ids := make([]string, 0, len(stats.Sessions))
	for id := range stats.Sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Sessions[ids[i]].FirstSeen.Before(stats.Sessions[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		s := stats.Sessions[id]
		fmt.Fprintf(w, "  [%s] %d events, %s, final state %s\n",
			shortID(id), s.Events, s.LastSeen.Sub(s.FirstSeen).Round(time.Millisecond), s.FinalState)
	}

	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
	return nil
}

// RunExport writes the capture as JSON lines or CSV.
func RunExport(path, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return log.Each(path, log.Filter{}, func(event log.Event) error {
			if err := enc.Encode(event); err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
			return nil
		})
	case "csv":
		cw := csv.NewWriter(w)
		header := []string{"timestamp", "connection_id", "direction", "layer", "category", "session_id", "device_id", "type", "size"}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		err := log.Each(path, log.Filter{}, func(event log.Event) error {
			size := ""
			switch {
			case event.Frame != nil:
				size = strconv.Itoa(event.Frame.Size)
			case event.Message != nil:
				size = strconv.Itoa(event.Message.Size)
			}
			return cw.Write([]string{
				event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
				event.ConnectionID,
				event.Direction.String(),
				event.Layer.String(),
				event.Category.String(),
				event.SessionID,
				event.DeviceID,
				eventLabel(event),
				size,
			})
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}
