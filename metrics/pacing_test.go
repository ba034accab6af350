package metrics

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := ConnectDuckDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func execAll(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func pacingFixture(t *testing.T, db *sql.DB) {
	execAll(t, db,
		`CREATE TABLE kill_events (round_number BIGINT, seconds_into_round DOUBLE)`,
		`INSERT INTO kill_events VALUES (1, 5.2), (1, 12.0), (2, 3.0), (2, 8.5)`,
		`CREATE TABLE plant_events (round_number BIGINT, seconds_into_round DOUBLE)`,
		`INSERT INTO plant_events VALUES (1, 30.0), (2, 25.5)`,
		`CREATE TABLE death_events (round_number BIGINT, seconds_into_round DOUBLE)`,
		`INSERT INTO death_events VALUES (1, 10.0), (1, 30.0), (2, 20.0), (2, 30.0), (3, 40.0)`,
	)
}

func TestTimeToFirstKill(t *testing.T) {
	db := openTestDB(t)
	pacingFixture(t, db)

	points, err := TimeToFirstKill(context.Background(), db, "kill_events", nil)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1), points[0].Round)
	assert.InDelta(t, 5.2, points[0].Seconds, 1e-9)
	assert.Equal(t, int64(2), points[1].Round)
	assert.InDelta(t, 3.0, points[1].Seconds, 1e-9)
}

func TestTimeToBombPlant(t *testing.T) {
	db := openTestDB(t)
	pacingFixture(t, db)

	points, err := TimeToBombPlant(context.Background(), db, "plant_events", nil)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 30.0, points[0].Seconds, 1e-9)
	assert.InDelta(t, 25.5, points[1].Seconds, 1e-9)
}

func TestAverageDeathTimestamp(t *testing.T) {
	db := openTestDB(t)
	pacingFixture(t, db)

	points, err := AverageDeathTimestamp(context.Background(), db, "death_events", nil)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 20.0, points[0].Seconds, 1e-9)
	assert.InDelta(t, 25.0, points[1].Seconds, 1e-9)
	assert.InDelta(t, 40.0, points[2].Seconds, 1e-9)
}

// rounds present in only some inputs still appear in the summary, with the
// missing metrics null
func TestSummarizePacingOuterJoinsRounds(t *testing.T) {
	db := openTestDB(t)
	pacingFixture(t, db)

	rows, err := SummarizePacing(context.Background(), db, "kill_events", "plant_events", "death_events", nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, int64(1), first.Round)
	require.True(t, first.TimeToFirstKill.Valid)
	assert.InDelta(t, 5.2, first.TimeToFirstKill.Float64, 1e-9)
	require.True(t, first.TimeToBombPlant.Valid)
	assert.InDelta(t, 30.0, first.TimeToBombPlant.Float64, 1e-9)
	require.True(t, first.AverageDeathSeconds.Valid)
	assert.InDelta(t, 20.0, first.AverageDeathSeconds.Float64, 1e-9)

	third := rows[2]
	assert.Equal(t, int64(3), third.Round)
	assert.False(t, third.TimeToFirstKill.Valid)
	assert.False(t, third.TimeToBombPlant.Valid)
	require.True(t, third.AverageDeathSeconds.Valid)
	assert.InDelta(t, 40.0, third.AverageDeathSeconds.Float64, 1e-9)
}

func TestPacingCustomColumnNames(t *testing.T) {
	db := openTestDB(t)
	execAll(t, db,
		`CREATE TABLE kills (rn BIGINT, ts DOUBLE)`,
		`INSERT INTO kills VALUES (1, 7.5)`,
	)

	points, err := TimeToFirstKill(context.Background(), db, "kills", &PacingColumns{Round: "rn", Seconds: "ts"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 7.5, points[0].Seconds, 1e-9)
}
