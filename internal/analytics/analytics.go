package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"verde/internal/savings"
	"verde/internal/storage"
)

// DailyStats summarizes one UTC day of recorded submissions.
type DailyStats struct {
	Date        string              `json:"date"`
	Prompts     int                 `json:"prompts"`
	Failures    int                 `json:"failures"`
	UniqueUsers int                 `json:"unique_users"`
	Savings     savings.Totals      `json:"savings"`
	UserStats   map[int64]UserStats `json:"user_stats"`
}

// UserStats is the per-user share of a day.
type UserStats struct {
	UserID   int64          `json:"user_id"`
	Prompts  int            `json:"prompts"`
	Failures int            `json:"failures"`
	Savings  savings.Totals `json:"savings"`
}

// AnalyzeDailyLogs aggregates the events that fall on targetDate's day.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay, endOfDay := DayWindow(targetDate)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		UserStats: make(map[int64]UserStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if strings.TrimSpace(event.Prompt) == "" {
			continue
		}

		stats.Prompts++
		userStat, ok := stats.UserStats[event.UserID]
		if !ok {
			userStat = UserStats{UserID: event.UserID}
		}
		userStat.Prompts++

		if event.Failed() {
			stats.Failures++
			userStat.Failures++
		} else if event.Savings != nil {
			stats.Savings = stats.Savings.Add(*event.Savings)
			userStat.Savings = userStat.Savings.Add(*event.Savings)
		}
		stats.UserStats[event.UserID] = userStat
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// DayWindow returns the [start, end) bounds of t's calendar day.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthWindow returns the [start, end) bounds of t's calendar month.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// UserSavings sums the savings one user earned in [from, to). Failed
// submissions carry no savings and are skipped.
func UserSavings(events []storage.Event, userID int64, from, to time.Time) savings.Totals {
	var total savings.Totals
	for _, event := range events {
		if event.UserID != userID || event.Savings == nil || event.Failed() {
			continue
		}
		if event.Timestamp.Before(from) || !event.Timestamp.Before(to) {
			continue
		}
		total = total.Add(*event.Savings)
	}
	return total
}

// Summary renders the report sent to the admin.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verde usage for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Prompts: %d\n", ds.Prompts)
	fmt.Fprintf(&b, "Failed replies: %d\n", ds.Failures)
	fmt.Fprintf(&b, "Unique users: %d\n\n", ds.UniqueUsers)

	for _, line := range ds.Savings.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if len(ds.UserStats) == 0 {
		return b.String()
	}

	ids := make([]int64, 0, len(ds.UserStats))
	for id := range ds.UserStats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintf(&b, "\nPer user (%d):\n", len(ids))
	for _, id := range ids {
		us := ds.UserStats[id]
		fmt.Fprintf(&b, "- %d: %d prompts", id, us.Prompts)
		if us.Failures > 0 {
			fmt.Fprintf(&b, ", %d failed", us.Failures)
		}
		fmt.Fprintf(&b, ", %.4f kWh\n", us.Savings.EnergyKWh)
	}
	return b.String()
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
