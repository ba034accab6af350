package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// RotationColumns maps the column names used by rotation queries.
type RotationColumns struct {
	Round             string
	Rotator           string
	Path              string
	Trigger           string
	Arrival           string
	RoundWin          string
	EngagementSuccess string
}

func DefaultRotationColumns() RotationColumns {
	return RotationColumns{
		Round:             "round_number",
		Rotator:           "rotator_id",
		Path:              "rotation_path",
		Trigger:           "trigger_time",
		Arrival:           "arrival_time",
		RoundWin:          "round_won",
		EngagementSuccess: "engagement_success",
	}
}

// GroupedValue is one aggregated value keyed by the group columns.
type GroupedValue struct {
	Keys  map[string]any
	Value float64
}

// RotationSummary combines the rotation metrics for one group.
type RotationSummary struct {
	Keys                  map[string]any
	AvgRotationSeconds    float64
	RotationSuccessRate   float64
	EngagementSuccessRate float64
	// FastRotationRate is valid only when a travel-time threshold was set.
	FastRotationRate sql.NullFloat64
}

// RotationAnalyzer computes rotational efficiency metrics with shared
// settings. Zero value uses the default columns and group keys (rotator,
// path).
type RotationAnalyzer struct {
	Columns RotationColumns
	// GroupKeys overrides the grouping columns.
	GroupKeys []string
	// TravelTimeThreshold, when set, adds a fast-rotation share to
	// Summarize.
	TravelTimeThreshold *float64
}

func (a *RotationAnalyzer) columns() RotationColumns {
	if a.Columns == (RotationColumns{}) {
		return DefaultRotationColumns()
	}
	return a.Columns
}

func (a *RotationAnalyzer) keys() []string {
	if len(a.GroupKeys) > 0 {
		return a.GroupKeys
	}
	cols := a.columns()
	return []string{cols.Rotator, cols.Path}
}

func travelTimeExpr(cols RotationColumns) string {
	return fmt.Sprintf("(%s - %s)", quoteIdent(cols.Arrival), quoteIdent(cols.Trigger))
}

func rateExpr(col string) string {
	return fmt.Sprintf("avg(CASE WHEN CAST(%s AS BOOLEAN) THEN 1.0 ELSE 0.0 END)::DOUBLE", quoteIdent(col))
}

func quotedList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = quoteIdent(k)
	}
	return strings.Join(quoted, ", ")
}

func groupedQuery(ctx context.Context, db *sql.DB, relation string, keys []string, aggExpr string) ([]GroupedValue, error) {
	keyList := quotedList(keys)
	q := fmt.Sprintf(
		"SELECT %s, %s FROM %s GROUP BY %s ORDER BY %s",
		keyList, aggExpr, relation, keyList, keyList,
	)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupedValue
	for rows.Next() {
		keyVals := make([]any, len(keys))
		dest := make([]any, 0, len(keys)+1)
		for i := range keyVals {
			dest = append(dest, &keyVals[i])
		}
		var value float64
		dest = append(dest, &value)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		g := GroupedValue{Keys: make(map[string]any, len(keys)), Value: value}
		for i, k := range keys {
			g.Keys[k] = keyVals[i]
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Timing averages rotation travel time (arrival minus trigger) per group.
func (a *RotationAnalyzer) Timing(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	cols := a.columns()
	agg := fmt.Sprintf("avg(%s)::DOUBLE AS avg_rotation_seconds", travelTimeExpr(cols))
	return groupedQuery(ctx, db, rotationEvents, a.keys(), agg)
}

// SuccessRate is the share of rotations that ended in a round win.
func (a *RotationAnalyzer) SuccessRate(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	cols := a.columns()
	agg := rateExpr(cols.RoundWin) + " AS rotation_success_rate"
	return groupedQuery(ctx, db, rotationEvents, a.keys(), agg)
}

// EngagementRate is the share of rotations where the rotator secured an
// impactful engagement.
func (a *RotationAnalyzer) EngagementRate(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	cols := a.columns()
	agg := rateExpr(cols.EngagementSuccess) + " AS engagement_success_rate"
	return groupedQuery(ctx, db, rotationEvents, a.keys(), agg)
}

// Summarize computes timing, success and engagement rates in one pass, plus
// the fast-rotation share when a threshold is configured.
func (a *RotationAnalyzer) Summarize(ctx context.Context, db *sql.DB, rotationEvents string) ([]RotationSummary, error) {
	cols := a.columns()
	keys := a.keys()
	keyList := quotedList(keys)
	travel := travelTimeExpr(cols)

	aggs := []string{
		fmt.Sprintf("avg(%s)::DOUBLE AS avg_rotation_seconds", travel),
		rateExpr(cols.RoundWin) + " AS rotation_success_rate",
		rateExpr(cols.EngagementSuccess) + " AS engagement_success_rate",
	}
	args := []any{}
	if a.TravelTimeThreshold != nil {
		aggs = append(aggs, fmt.Sprintf(
			"avg(CASE WHEN %s <= ? THEN 1.0 ELSE 0.0 END)::DOUBLE AS fast_rotation_rate", travel,
		))
		args = append(args, *a.TravelTimeThreshold)
	}

	q := fmt.Sprintf(
		"SELECT %s, %s FROM %s GROUP BY %s ORDER BY %s",
		keyList, strings.Join(aggs, ", "), rotationEvents, keyList, keyList,
	)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RotationSummary
	for rows.Next() {
		keyVals := make([]any, len(keys))
		dest := make([]any, 0, len(keys)+4)
		for i := range keyVals {
			dest = append(dest, &keyVals[i])
		}
		var s RotationSummary
		dest = append(dest, &s.AvgRotationSeconds, &s.RotationSuccessRate, &s.EngagementSuccessRate)
		if a.TravelTimeThreshold != nil {
			dest = append(dest, &s.FastRotationRate)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.Keys = make(map[string]any, len(keys))
		for i, k := range keys {
			s.Keys[k] = keyVals[i]
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RotationTiming, RotationSuccessRate and EngagementSuccessRate are
// convenience wrappers over a zero-configured analyzer.

func RotationTiming(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	a := RotationAnalyzer{}
	return a.Timing(ctx, db, rotationEvents)
}

func RotationSuccessRate(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	a := RotationAnalyzer{}
	return a.SuccessRate(ctx, db, rotationEvents)
}

func EngagementSuccessRate(ctx context.Context, db *sql.DB, rotationEvents string) ([]GroupedValue, error) {
	a := RotationAnalyzer{}
	return a.EngagementRate(ctx, db, rotationEvents)
}
