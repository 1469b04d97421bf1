package protocol

import (
	"encoding/json"
	"fmt"
)

// PlayerStat is one player's line in the end-of-match tally.
type PlayerStat struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Side     string  `json:"side"`
	Kills    int     `json:"kills"`
	Deaths   int     `json:"deaths"`
	Damage   float64 `json:"damage"`
}

// MatchResults is the decoded match_ended payload. It is handed to the
// result presentation exactly once and not retained by the core.
type MatchResults struct {
	Winner      string
	Scores      map[string]int
	DurationMS  int64
	PlayerStats []PlayerStat
}

// DecodeMatchResults turns a raw match_ended payload into a MatchResults the
// presentation layer can always render. The payload comes from the network
// and is untrusted: every field is checked for presence and shape, and a
// missing or mistyped field is replaced by a safe default (empty winner,
// zero scores, empty roster) instead of failing. Each substitution is
// reported as an anomaly string so the caller can log what the server
// actually sent. This function never panics and never returns an error.
func DecodeMatchResults(raw json.RawMessage) (MatchResults, []string) {
	res := MatchResults{
		Scores:      map[string]int{},
		PlayerStats: []PlayerStat{},
	}
	var anomalies []string

	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return res, append(anomalies, "match results payload is not a JSON object")
	}

	if v, ok := fields["winner"]; ok {
		if err := json.Unmarshal(v, &res.Winner); err != nil {
			anomalies = append(anomalies, "winner is not a string")
		}
	} else {
		anomalies = append(anomalies, "winner missing")
	}

	if v, ok := fields["scores"]; ok {
		var scores map[string]int
		if err := json.Unmarshal(v, &scores); err != nil {
			anomalies = append(anomalies, "scores is not a side-to-count object")
		} else {
			res.Scores = scores
		}
	} else {
		anomalies = append(anomalies, "scores missing")
	}

	if v, ok := fields["durationMs"]; ok {
		if err := json.Unmarshal(v, &res.DurationMS); err != nil || res.DurationMS < 0 {
			res.DurationMS = 0
			anomalies = append(anomalies, "durationMs is not a non-negative number")
		}
	} else {
		anomalies = append(anomalies, "durationMs missing")
	}

	v, ok := fields["playerStats"]
	if !ok {
		return res, append(anomalies, "playerStats missing")
	}

	// playerStats must be an array. Decode element by element so one bad
	// entry drops that entry, not the whole roster.
	var entries []json.RawMessage
	if err := json.Unmarshal(v, &entries); err != nil {
		return res, append(anomalies, "playerStats is not an array")
	}
	for i, entry := range entries {
		var stat PlayerStat
		if err := json.Unmarshal(entry, &stat); err != nil {
			anomalies = append(anomalies, fmt.Sprintf("playerStats[%d] is malformed", i))
			continue
		}
		if stat.PlayerID == "" && stat.Name == "" {
			anomalies = append(anomalies, fmt.Sprintf("playerStats[%d] has no identity", i))
			continue
		}
		// counts can never be negative, a hostile payload should not
		// produce nonsense tallies on screen
		if stat.Kills < 0 {
			stat.Kills = 0
			anomalies = append(anomalies, fmt.Sprintf("playerStats[%d] kills negative", i))
		}
		if stat.Deaths < 0 {
			stat.Deaths = 0
			anomalies = append(anomalies, fmt.Sprintf("playerStats[%d] deaths negative", i))
		}
		if stat.Damage < 0 {
			stat.Damage = 0
			anomalies = append(anomalies, fmt.Sprintf("playerStats[%d] damage negative", i))
		}
		res.PlayerStats = append(res.PlayerStats, stat)
	}

	return res, anomalies
}
