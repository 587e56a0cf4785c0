package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func setupRateTest(t *testing.T) (domain.RateTableRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewPgRateTableRepository(mockPool, logger)
	return repo, mockPool
}

const findRateQuery = `SELECT mcc, mnc, connector_id, rate, label, created_at, updated_at FROM rate_records WHERE mcc = \$1 AND mnc = \$2 AND connector_id = \$3`

var rateColumns = []string{"mcc", "mnc", "connector_id", "rate", "label", "created_at", "updated_at"}

func rateRow(mockPool pgxmock.PgxPoolIface, mcc int, mnc, connectorID string, rate float64, label string) *pgxmock.Rows {
	now := time.Now()
	return mockPool.NewRows(rateColumns).AddRow(mcc, mnc, connectorID, rate, label, now, now)
}

func TestRoundRate(t *testing.T) {
	assert.InDelta(t, 0.0148, RoundRate(0.014789), 1e-9)
	assert.InDelta(t, 0.015, RoundRate(0.015), 1e-9)
	assert.InDelta(t, 1.2346, RoundRate(1.23456789), 1e-9)
	assert.InDelta(t, 0.0001, RoundRate(0.00012), 1e-9)
}

func TestValidRate(t *testing.T) {
	assert.True(t, validRate(0.01))
	assert.False(t, validRate(0))
	assert.False(t, validRate(-5))
	assert.False(t, validRate(math.NaN()))
	assert.False(t, validRate(math.Inf(1)))
}

func TestPgRateTableRepository_FindRate(t *testing.T) {
	repo, mockPool := setupRateTest(t)
	defer mockPool.Close()

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnRows(rateRow(mockPool, 404, "45", "conn-a", 0.015, "Airtel"))

		rec, err := repo.FindRate(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 404, rec.MCC)
		assert.Equal(t, domain.SpecificMNC(45), rec.MNC)
		assert.InDelta(t, 0.015, rec.Rate, 1e-9)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnError(pgx.ErrNoRows)

		rec, err := repo.FindRate(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, rec)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		dbErr := errors.New("database error")
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnError(dbErr)

		rec, err := repo.FindRate(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), dbErr.Error())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgRateTableRepository_FindRateWithWildcardFallback(t *testing.T) {
	repo, mockPool := setupRateTest(t)
	defer mockPool.Close()

	t.Run("ExactMatchWins", func(t *testing.T) {
		// A single expectation: the wildcard row must not be consulted
		// when the exact triple exists.
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnRows(rateRow(mockPool, 404, "45", "conn-a", 0.015, "Airtel"))

		rec, err := repo.FindRateWithWildcardFallback(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.NoError(t, err)
		assert.Equal(t, domain.SpecificMNC(45), rec.MNC)
		assert.InDelta(t, 0.015, rec.Rate, 1e-9)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("FallsBackToWildcard", func(t *testing.T) {
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "*", "conn-a").
			WillReturnRows(rateRow(mockPool, 404, "*", "conn-a", 0.02, "India default"))

		rec, err := repo.FindRateWithWildcardFallback(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.NoError(t, err)
		assert.True(t, rec.MNC.Wildcard)
		assert.InDelta(t, 0.02, rec.Rate, 1e-9)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("WildcardMissStaysMiss", func(t *testing.T) {
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "*", "conn-a").
			WillReturnError(pgx.ErrNoRows)

		rec, err := repo.FindRateWithWildcardFallback(context.Background(), 404, domain.TheWildcardMNC(), "conn-a")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, rec)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBErrorShortCircuits", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mockPool.ExpectQuery(findRateQuery).
			WithArgs(404, "45", "conn-a").
			WillReturnError(dbErr)

		rec, err := repo.FindRateWithWildcardFallback(context.Background(), 404, domain.SpecificMNC(45), "conn-a")
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), dbErr.Error())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgRateTableRepository_BulkUpsert(t *testing.T) {
	repo, mockPool := setupRateTest(t)
	defer mockPool.Close()

	query := `INSERT INTO rate_records \(mcc, mnc, connector_id, rate, label\) VALUES \(\$1, \$2, \$3, \$4, \$5\) ON CONFLICT \(mcc, mnc, connector_id\) DO UPDATE SET rate = EXCLUDED\.rate, label = EXCLUDED\.label, updated_at = now\(\) RETURNING \(xmax = 0\) AS inserted`

	records := []domain.RateRecord{
		{MCC: 404, MNC: domain.SpecificMNC(45), ConnectorID: "conn-a", Rate: 0.015, Label: "Airtel"},
		{MCC: 404, MNC: domain.TheWildcardMNC(), ConnectorID: "conn-a", Rate: 0.02, Label: "India default"},
		{MCC: 404, MNC: domain.SpecificMNC(49), ConnectorID: "", Rate: 0.01, Label: "no connector"},
		{MCC: 404, MNC: domain.SpecificMNC(52), ConnectorID: "conn-a", Rate: -1, Label: "bad rate"},
		{MCC: 405, MNC: domain.SpecificMNC(7), ConnectorID: "conn-a", Rate: 0.03, Label: "Jio"},
	}

	mockPool.ExpectQuery(query).
		WithArgs(404, "45", "conn-a", 0.015, "Airtel").
		WillReturnRows(mockPool.NewRows([]string{"inserted"}).AddRow(true))
	mockPool.ExpectQuery(query).
		WithArgs(404, "*", "conn-a", 0.02, "India default").
		WillReturnRows(mockPool.NewRows([]string{"inserted"}).AddRow(false))
	// Rows 3 and 4 are invalid and never reach the database.
	mockPool.ExpectQuery(query).
		WithArgs(405, "7", "conn-a", 0.03, "Jio").
		WillReturnError(errors.New("deadlock detected"))

	result, err := repo.BulkUpsert(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 3, result.Skipped)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgRateTableRepository_ListByConnector(t *testing.T) {
	repo, mockPool := setupRateTest(t)
	defer mockPool.Close()

	query := `SELECT mcc, mnc, connector_id, rate, label, created_at, updated_at FROM rate_records WHERE connector_id = \$1 ORDER BY mcc ASC, mnc COLLATE "C" ASC`

	t.Run("WildcardRowsFirst", func(t *testing.T) {
		rows := mockPool.NewRows(rateColumns).
			AddRow(404, "*", "conn-a", 0.02, "India default", time.Now(), time.Now()).
			AddRow(404, "45", "conn-a", 0.015, "Airtel", time.Now(), time.Now())
		mockPool.ExpectQuery(query).WithArgs("conn-a").WillReturnRows(rows)

		records, err := repo.ListByConnector(context.Background(), "conn-a")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.True(t, records[0].MNC.Wildcard)
		assert.Equal(t, domain.SpecificMNC(45), records[1].MNC)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		dbErr := errors.New("database error")
		mockPool.ExpectQuery(query).WithArgs("conn-a").WillReturnError(dbErr)

		records, err := repo.ListByConnector(context.Background(), "conn-a")
		require.Error(t, err)
		assert.Nil(t, records)
		assert.Contains(t, err.Error(), dbErr.Error())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
