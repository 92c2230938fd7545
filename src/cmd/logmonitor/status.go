// FILE: logmonitor/src/cmd/logmonitor/status.go
package main

import (
	"context"
	"time"
)

// statusReporter periodically logs store and connection counters
func statusReporter(ctx context.Context, srv *server) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStatus(srv)
		}
	}
}

func logStatus(srv *server) {
	stats := srv.store.Statistics()
	counts := srv.store.RunningCounts()
	sourceStats := srv.source.GetStats()

	fields := []any{
		"msg", "Status report",
		"component", "status_reporter",
		"rows", srv.store.Len(),
		"clients", stats.Clients,
		"errors", stats.Error,
		"warnings", stats.Warning,
		"notices", stats.Notice,
		"infos", stats.Info,
		"recent_errors", counts["error"],
		"recent_warnings", counts["warning"],
		"total_messages", sourceStats.TotalMessages,
		"aborted_connections", sourceStats.AbortedConns,
	}
	if !sourceStats.LastMessageTime.IsZero() {
		fields = append(fields, "last_message", sourceStats.LastMessageTime.Format(time.RFC3339))
	}
	if srv.http != nil {
		httpStats := srv.http.GetStats()
		fields = append(fields,
			"http_streams", httpStats.ActiveConnections,
			"http_streamed", httpStats.TotalProcessed)
	}

	logger.Debug(fields...)
}
