// Package commitday reduces a commit log to one representative commit per
// calendar day.
package commitday

import (
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// Commit is one entry of a repository's commit log.
type Commit struct {
	// Hash is the commit identifier.
	Hash string
	// When is the committer timestamp in the committer's own offset.
	When time.Time
}

// Day returns the calendar day the commit belongs to.
func (c Commit) Day() history.Date {
	return history.DateOf(c.When)
}

// Entry pairs a calendar day with the last commit made on it.
type Entry struct {
	Date   history.Date
	Commit Commit
}

// Select returns, in ascending date order, one entry per day of log that is
// strictly after since. A zero since selects every day.
//
// log is expected oldest-first. For each day the chronologically last commit
// wins; commits with identical timestamps resolve to the one appearing later
// in log, so an ordered log behaves as "last seen wins".
func Select(log []Commit, since history.Date) []Entry {
	if len(log) == 0 {
		return nil
	}

	byDay := make(map[history.Date]Commit)

	for _, commit := range log {
		day := commit.Day()

		if !since.IsZero() && !day.After(since) {
			continue
		}

		prev, seen := byDay[day]
		if seen && commit.When.Before(prev.When) {
			continue
		}

		byDay[day] = commit
	}

	if len(byDay) == 0 {
		return nil
	}

	entries := make([]Entry, 0, len(byDay))

	for day, commit := range byDay {
		entries = append(entries, Entry{Date: day, Commit: commit})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(string(a.Date), string(b.Date))
	})

	return entries
}
