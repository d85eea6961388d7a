package audit

import (
	"math"
	"sort"
	"time"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

// The estimator reconstructs per-table timelines from the transaction log
// and flags anomalously long idle gaps as probable unrecorded games. It is
// a heuristic, not an exact reconciliation: it only reports, it never
// touches the ledger.

// Event is one game start replayed out of a transaction's parallel
// time/table arrays.
type Event struct {
	Table         int       `json:"table"`
	Start         time.Time `json:"start"`
	PlayerName    string    `json:"player_name"`
	TransactionID string    `json:"transaction_id"`
}

// TableReport is the leak estimate for one table over one business day.
type TableReport struct {
	Table            int     `json:"table"`
	RecordedGames    int     `json:"recorded_games"`
	MissingGames     int     `json:"missing_games"`
	TotalIdleMinutes float64 `json:"total_idle_minutes"`
	Efficiency       int     `json:"efficiency"`
	EstimatedLoss    float64 `json:"estimated_loss"`
}

// Match is a group of games started on one table close enough together to
// have been played against each other.
type Match struct {
	Table   int       `json:"table"`
	Start   time.Time `json:"start"`
	Players []string  `json:"players"`
	Games   []Event   `json:"games"`
}

// DayWindow returns the business-day bounds containing day: 08:00 local to
// 08:00 the next morning, not midnight to midnight. A timestamp before
// 08:00 belongs to the previous business day.
func DayWindow(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 8, 0, 0, 0, day.Location())
	if day.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.AddDate(0, 0, 1)
}

// Expand replays every transaction whose timestamp falls inside [from, to)
// into a flat event list. Table 0 marks an untracked game and is dropped.
func Expand(txs []*models.Transaction, from, to time.Time) []Event {
	var events []Event
	for _, tx := range txs {
		if tx.Timestamp.Before(from) || !tx.Timestamp.Before(to) {
			continue
		}
		n := len(tx.GameStartTimes)
		if len(tx.GameTables) < n {
			n = len(tx.GameTables)
		}
		for i := 0; i < n; i++ {
			if tx.GameTables[i] == 0 {
				continue
			}
			events = append(events, Event{
				Table:         tx.GameTables[i],
				Start:         tx.GameStartTimes[i],
				PlayerName:    tx.PlayerName,
				TransactionID: tx.ID,
			})
		}
	}
	return events
}

// ByTable partitions events per table, each table's events sorted by start
// time ascending.
func ByTable(events []Event) map[int][]Event {
	tables := map[int][]Event{}
	for _, ev := range events {
		tables[ev.Table] = append(tables[ev.Table], ev)
	}
	for _, evs := range tables {
		sort.Slice(evs, func(i, j int) bool { return evs[i].Start.Before(evs[j].Start) })
	}
	return tables
}

// Report builds the per-table leak estimate for the business day containing
// day. A gap between consecutive games longer than the table's configured
// max duration plus the grace margin is counted idle, and every average
// game length that fits in it is a probable missing game.
func Report(cfg models.Settings, txs []*models.Transaction, day time.Time) []TableReport {
	from, to := DayWindow(day)
	tables := ByTable(Expand(txs, from, to))

	reports := make([]TableReport, 0, len(tables))
	for table, events := range tables {
		rep := TableReport{Table: table, RecordedGames: len(events)}
		dur := cfg.DurationFor(table)
		avg := dur.Average()

		for i := 1; i < len(events); i++ {
			gap := events[i].Start.Sub(events[i-1].Start).Minutes()
			if gap <= dur.Max+cfg.AuditGraceMinutes {
				continue
			}
			rep.TotalIdleMinutes += gap
			if avg > 0 {
				rep.MissingGames += int(math.Floor(gap / avg))
			}
		}

		if rep.RecordedGames+rep.MissingGames == 0 {
			rep.Efficiency = 100
		} else {
			rep.Efficiency = int(math.Round(float64(rep.RecordedGames) / float64(rep.RecordedGames+rep.MissingGames) * 100))
		}
		rep.EstimatedLoss = float64(rep.MissingGames) * cfg.PricePerGame

		reports = append(reports, rep)
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Table < reports[j].Table })
	return reports
}

// Matches groups games on the same table starting within the configured
// window of each other into match sessions of at least two distinct
// players.
func Matches(cfg models.Settings, txs []*models.Transaction, day time.Time) []Match {
	from, to := DayWindow(day)
	tables := ByTable(Expand(txs, from, to))

	var matches []Match
	for table, events := range tables {
		var cluster []Event
		flush := func() {
			if m, ok := buildMatch(table, cluster); ok {
				matches = append(matches, m)
			}
			cluster = nil
		}

		for _, ev := range events {
			if len(cluster) > 0 && ev.Start.Sub(cluster[len(cluster)-1].Start).Minutes() > cfg.MatchWindowMinutes {
				flush()
			}
			cluster = append(cluster, ev)
		}
		flush()
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start.Equal(matches[j].Start) {
			return matches[i].Table < matches[j].Table
		}
		return matches[i].Start.Before(matches[j].Start)
	})
	return matches
}

func buildMatch(table int, cluster []Event) (Match, bool) {
	if len(cluster) < 2 {
		return Match{}, false
	}

	seen := map[string]bool{}
	var players []string
	for _, ev := range cluster {
		if !seen[ev.PlayerName] {
			seen[ev.PlayerName] = true
			players = append(players, ev.PlayerName)
		}
	}
	if len(players) < 2 {
		return Match{}, false
	}

	return Match{
		Table:   table,
		Start:   cluster[0].Start,
		Players: players,
		Games:   append([]Event{}, cluster...),
	}, true
}
