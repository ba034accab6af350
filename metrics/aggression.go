package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
)

// AggressionColumns maps the column names used by aggression queries. Z is
// optional; leave it empty for 2D position data.
type AggressionColumns struct {
	Round   string
	Seconds string
	Player  string
	X       string
	Y       string
	Z       string
	Side    string
	Zone    string
}

func DefaultAggressionColumns() AggressionColumns {
	return AggressionColumns{
		Round:   "round_number",
		Seconds: "seconds_into_round",
		Player:  "player_id",
		X:       "x",
		Y:       "y",
		Side:    "side",
		Zone:    "zone",
	}
}

func (c *AggressionColumns) orDefault() AggressionColumns {
	if c == nil {
		return DefaultAggressionColumns()
	}
	return *c
}

// RoundValue is a per-round scalar; Value is null when every joined input
// value was null.
type RoundValue struct {
	Round int64
	Value sql.NullFloat64
}

// RoundCount is a per-round player count.
type RoundCount struct {
	Round   int64
	Players int64
}

// SpacingRow is the average pairwise teammate distance per round and side.
type SpacingRow struct {
	Round      int64
	Side       string
	AvgSpacing float64
}

// TSideAverageDistance averages the distance of T players to their nearest
// bombsite over the opening window of each round. The distances relation
// maps zone to a distance_to_bombsite column.
func TSideAverageDistance(ctx context.Context, db *sql.DB, positions, bombsiteDistances string, columns *AggressionColumns, cutoffSeconds int) ([]RoundValue, error) {
	cols := columns.orDefault()
	q := fmt.Sprintf(`
SELECT p.%[1]s, avg(d.distance_to_bombsite)::DOUBLE AS avg_distance_to_bombsite
FROM %[2]s p
LEFT JOIN %[3]s d ON p.%[4]s = d.%[4]s
WHERE p.%[5]s = 'T' AND p.%[6]s <= ?
GROUP BY p.%[1]s
ORDER BY p.%[1]s`,
		quoteIdent(cols.Round), positions, bombsiteDistances,
		quoteIdent(cols.Zone), quoteIdent(cols.Side), quoteIdent(cols.Seconds),
	)
	rows, err := db.QueryContext(ctx, q, cutoffSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundValue
	for rows.Next() {
		var r RoundValue
		if err := rows.Scan(&r.Round, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CTForwardPresence counts distinct CT players crossing chokepoints in the
// opening window of each round. The crossings relation has player_id and
// chokepoint columns.
func CTForwardPresence(ctx context.Context, db *sql.DB, positions, chokepointCrossings string, columns *AggressionColumns, cutoffSeconds int) ([]RoundCount, error) {
	cols := columns.orDefault()
	q := fmt.Sprintf(`
SELECT p.%[1]s, count(DISTINCT p.%[2]s) AS ct_forward_presence
FROM %[3]s p
JOIN %[4]s c ON p.%[2]s = c.player_id AND p.%[5]s = c.chokepoint
WHERE p.%[6]s = 'CT' AND p.%[7]s <= ?
GROUP BY p.%[1]s
ORDER BY p.%[1]s`,
		quoteIdent(cols.Round), quoteIdent(cols.Player), positions, chokepointCrossings,
		quoteIdent(cols.Zone), quoteIdent(cols.Side), quoteIdent(cols.Seconds),
	)
	rows, err := db.QueryContext(ctx, q, cutoffSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundCount
	for rows.Next() {
		var r RoundCount
		if err := rows.Scan(&r.Round, &r.Players); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerSpacing averages the pairwise Euclidean distance between teammates
// sampled at the same second of the same round. Pass a negative
// cutoffSeconds to use the whole round. The Z coordinate joins the distance
// when mapped and present in the relation.
func PlayerSpacing(ctx context.Context, db *sql.DB, positions string, columns *AggressionColumns, cutoffSeconds int) ([]SpacingRow, error) {
	cols := columns.orDefault()

	coords := []string{cols.X, cols.Y}
	if cols.Z != "" {
		present, err := relationColumns(ctx, db, positions)
		if err != nil {
			return nil, err
		}
		if slices.Contains(present, cols.Z) {
			coords = append(coords, cols.Z)
		}
	}
	terms := make([]string, len(coords))
	for i, coord := range coords {
		c := quoteIdent(coord)
		terms[i] = fmt.Sprintf("(a.%[1]s - b.%[1]s) * (a.%[1]s - b.%[1]s)", c)
	}
	distance := "sqrt(" + strings.Join(terms, " + ") + ")"

	cutoff := ""
	args := []any{}
	if cutoffSeconds >= 0 {
		cutoff = fmt.Sprintf(" AND a.%s <= ?", quoteIdent(cols.Seconds))
		args = append(args, cutoffSeconds)
	}

	q := fmt.Sprintf(`
SELECT a.%[1]s, a.%[2]s, avg(%[3]s)::DOUBLE AS avg_player_spacing
FROM %[4]s a
JOIN %[4]s b
  ON a.%[1]s = b.%[1]s AND a.%[5]s = b.%[5]s AND a.%[2]s = b.%[2]s
 AND a.%[6]s < b.%[6]s
WHERE TRUE%[7]s
GROUP BY a.%[1]s, a.%[2]s
ORDER BY a.%[1]s, a.%[2]s`,
		quoteIdent(cols.Round), quoteIdent(cols.Side), distance, positions,
		quoteIdent(cols.Seconds), quoteIdent(cols.Player), cutoff,
	)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpacingRow
	for rows.Next() {
		var r SpacingRow
		if err := rows.Scan(&r.Round, &r.Side, &r.AvgSpacing); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
