// Package analytics computes the dashboard, board and productivity reports.
// The aggregation functions are pure and also serve as the reference for the
// store-side dashboard aggregation.
package analytics

import (
	"math"
	"sort"
	"time"

	"vortexboard/internal/models"
)

const dayLayout = "2006-01-02"

// Counts maps a grouping key to its count. Keys with zero count are absent.
type Counts map[string]int

// Summary is the set of counters shared by the dashboard and board reports.
type Summary struct {
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	Overdue     int    `json:"overdue"`
	DueThisWeek int    `json:"dueThisWeek"`
	ByStatus    Counts `json:"byStatus"`
	ByPriority  Counts `json:"byPriority"`
}

// Summarize counts tasks by status and priority and flags overdue tasks and
// open tasks due within seven days of now.
func Summarize(tasks []models.Task, now time.Time) Summary {
	s := Summary{ByStatus: Counts{}, ByPriority: Counts{}}
	weekFromNow := now.AddDate(0, 0, 7)
	for i := range tasks {
		t := &tasks[i]
		s.Total++
		if t.Status != "" {
			s.ByStatus[t.Status]++
		}
		if t.Priority != "" {
			s.ByPriority[t.Priority]++
		}
		if t.IsCompleted() {
			s.Completed++
			continue
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
		if t.DueDate != nil && !t.DueDate.Before(now) && !t.DueDate.After(weekFromNow) {
			s.DueThisWeek++
		}
	}
	return s
}

// CompletionRate is completed/total as a percentage rounded to two
// decimals, or 0 when there are no tasks.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(completed) / float64(total) * 100)
}

// completedAt falls back to the last update for tasks finished before
// completion time was tracked.
func completedAt(t *models.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.UpdatedAt
}

// AverageCompletionDays is the mean of completion minus creation over the
// completed tasks, in days rounded to two decimals. 0 when none are done.
func AverageCompletionDays(tasks []models.Task) float64 {
	var total time.Duration
	n := 0
	for i := range tasks {
		t := &tasks[i]
		if !t.IsCompleted() {
			continue
		}
		total += completedAt(t).Sub(t.CreatedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(total.Hours() / 24 / float64(n))
}

// OnTimeRate is the percentage of the given completed tasks finished on or
// before their due date. Tasks without a due date count as not on time.
func OnTimeRate(completed []models.Task) float64 {
	if len(completed) == 0 {
		return 0
	}
	onTime := 0
	for i := range completed {
		t := &completed[i]
		if t.DueDate != nil && !completedAt(t).After(*t.DueDate) {
			onTime++
		}
	}
	return CompletionRate(onTime, len(completed))
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyTrend groups the instants at or after since by UTC calendar day,
// sorted ascending by day.
func DailyTrend(instants []time.Time, since time.Time) []DayCount {
	byDay := map[string]int{}
	for _, ts := range instants {
		if ts.Before(since) {
			continue
		}
		byDay[ts.UTC().Format(dayLayout)]++
	}
	return TrendFromDays(byDay)
}

// TrendFromDays turns per-day counts into a trend sorted ascending by day.
func TrendFromDays(byDay map[string]int) []DayCount {
	out := make([]DayCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DayCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
