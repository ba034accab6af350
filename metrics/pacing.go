package metrics

import (
	"context"
	"database/sql"
	"fmt"
)

// PacingColumns maps the column names used by pacing queries.
type PacingColumns struct {
	Round   string
	Seconds string
}

func DefaultPacingColumns() PacingColumns {
	return PacingColumns{Round: "round_number", Seconds: "seconds_into_round"}
}

func (c *PacingColumns) orDefault() PacingColumns {
	if c == nil {
		return DefaultPacingColumns()
	}
	return *c
}

// PacingPoint is one per-round pacing value.
type PacingPoint struct {
	Round   int64
	Seconds float64
}

// PacingSummary joins the three pacing metrics on round number. Rounds
// absent from an input leave that metric null.
type PacingSummary struct {
	Round               int64
	TimeToFirstKill     sql.NullFloat64
	TimeToBombPlant     sql.NullFloat64
	AverageDeathSeconds sql.NullFloat64
}

func roundAggregate(ctx context.Context, db *sql.DB, relation, roundCol, aggExpr string) ([]PacingPoint, error) {
	q := fmt.Sprintf(
		"SELECT %s, %s FROM %s GROUP BY %s ORDER BY %s",
		quoteIdent(roundCol), aggExpr, relation, quoteIdent(roundCol), quoteIdent(roundCol),
	)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PacingPoint
	for rows.Next() {
		var p PacingPoint
		if err := rows.Scan(&p.Round, &p.Seconds); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TimeToFirstKill computes the earliest kill timestamp per round.
func TimeToFirstKill(ctx context.Context, db *sql.DB, killEvents string, columns *PacingColumns) ([]PacingPoint, error) {
	cols := columns.orDefault()
	agg := fmt.Sprintf("min(%s)::DOUBLE AS time_to_first_kill", quoteIdent(cols.Seconds))
	return roundAggregate(ctx, db, killEvents, cols.Round, agg)
}

// TimeToBombPlant computes the earliest plant timestamp per round. The
// relation should be pre-filtered to plant actions.
func TimeToBombPlant(ctx context.Context, db *sql.DB, plantEvents string, columns *PacingColumns) ([]PacingPoint, error) {
	cols := columns.orDefault()
	agg := fmt.Sprintf("min(%s)::DOUBLE AS time_to_bomb_plant", quoteIdent(cols.Seconds))
	return roundAggregate(ctx, db, plantEvents, cols.Round, agg)
}

// AverageDeathTimestamp computes the mean death timestamp per round.
func AverageDeathTimestamp(ctx context.Context, db *sql.DB, deathEvents string, columns *PacingColumns) ([]PacingPoint, error) {
	cols := columns.orDefault()
	agg := fmt.Sprintf("avg(%s)::DOUBLE AS average_death_seconds", quoteIdent(cols.Seconds))
	return roundAggregate(ctx, db, deathEvents, cols.Round, agg)
}

// SummarizePacing computes all three pacing metrics and outer-joins them on
// round number: the result covers every round present in any input.
func SummarizePacing(ctx context.Context, db *sql.DB, killEvents, plantEvents, deathEvents string, columns *PacingColumns) ([]PacingSummary, error) {
	cols := columns.orDefault()
	round := quoteIdent(cols.Round)
	seconds := quoteIdent(cols.Seconds)

	q := fmt.Sprintf(`
WITH ttfk AS (SELECT %[1]s AS rn, min(%[2]s)::DOUBLE AS v FROM %[3]s GROUP BY %[1]s),
     ttbp AS (SELECT %[1]s AS rn, min(%[2]s)::DOUBLE AS v FROM %[4]s GROUP BY %[1]s),
     avgd AS (SELECT %[1]s AS rn, avg(%[2]s)::DOUBLE AS v FROM %[5]s GROUP BY %[1]s),
     rounds AS (SELECT rn FROM ttfk UNION SELECT rn FROM ttbp UNION SELECT rn FROM avgd)
SELECT rounds.rn, ttfk.v, ttbp.v, avgd.v
FROM rounds
LEFT JOIN ttfk USING (rn)
LEFT JOIN ttbp USING (rn)
LEFT JOIN avgd USING (rn)
ORDER BY rounds.rn`,
		round, seconds, killEvents, plantEvents, deathEvents,
	)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PacingSummary
	for rows.Next() {
		var s PacingSummary
		if err := rows.Scan(&s.Round, &s.TimeToFirstKill, &s.TimeToBombPlant, &s.AverageDeathSeconds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
