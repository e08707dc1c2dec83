package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ledger-chat/internal/storage"
)

// DailyStats summarizes one day of the interaction log.
type DailyStats struct {
	Date           string         `json:"date"`
	TotalMessages  int            `json:"total_messages"`
	UniqueSessions int            `json:"unique_sessions"`
	RecordsLogged  int            `json:"records_logged"`
	FailedReplies  int            `json:"failed_replies"`
	ByChannel      map[string]int `json:"by_channel"`
}

// AnalyzeDailyLogs counts the events that fall on targetDate's calendar day.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		ByChannel: make(map[string]int),
	}

	sessions := make(map[string]bool)
	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		// Events without a user message are not turns
		if event.UserMessage == "" {
			continue
		}

		stats.TotalMessages++
		sessions[event.SessionID] = true
		if event.Logged {
			stats.RecordsLogged++
		}
		if event.Failed {
			stats.FailedReplies++
		}
		channel := event.Channel
		if channel == "" {
			channel = "web"
		}
		stats.ByChannel[channel]++
	}

	stats.UniqueSessions = len(sessions)
	return stats
}

// GenerateReportSummary renders the stats as a short plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat activity for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- messages: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- sessions: %d\n", ds.UniqueSessions)
	fmt.Fprintf(&b, "- ledger rows: %d\n", ds.RecordsLogged)
	fmt.Fprintf(&b, "- failed replies: %d\n", ds.FailedReplies)

	if len(ds.ByChannel) > 0 {
		channels := make([]string, 0, len(ds.ByChannel))
		for ch := range ds.ByChannel {
			channels = append(channels, ch)
		}
		sort.Strings(channels)
		b.WriteString("By channel:\n")
		for _, ch := range channels {
			fmt.Fprintf(&b, "- %s: %d\n", ch, ds.ByChannel[ch])
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
