//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/internal/records/naming"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	apperrors "github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	suite.Cleanup(ctx)
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func countView(t *testing.T, ctx context.Context, store *repository.TableStore, db interface {
	GetContext(context.Context, interface{}, string, ...interface{}) error
}) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+store.View()))
	return n
}

func TestTableStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := suite.SetupSchema(t, ctx)
	store := repository.NewTableStore(db, "", logger.Nop())
	records := repository.NewWorkRecordRepository(db)

	// a fresh schema still has a typed, empty view
	_, err := store.RebuildView(ctx)
	require.NoError(t, err)
	assert.Zero(t, countView(t, ctx, store, db))

	original := naming.TableName("Milan", "Šmotlák")
	require.NoError(t, store.Create(ctx, original))

	exists, err := store.Exists(ctx, "t_Milan_Smotlak")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = records.Create(ctx, original, &repository.NewWorkRecord{
		Date:           timecalc.NewDate(2025, 1, 15),
		ActivityTypeID: 1,
		StartTime:      "08:00:00",
		EndTime:        "16:30:00",
		Distance:       decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countView(t, ctx, store, db))

	renamed, err := store.Rename(ctx, original, naming.TableName("Milan", "Novák"))
	require.NoError(t, err)
	assert.True(t, renamed)

	renamed, err = store.Rename(ctx, "t_Milan_Novak", original)
	require.NoError(t, err)
	assert.True(t, renamed)

	page, total, err := records.Query(ctx, original, repository.RecordFilter{
		From: timecalc.NewDate(2025, 1, 1), To: timecalc.NewDate(2025, 1, 31), Limit: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, page, 1)
	assert.Equal(t, "16:30:00", page[0].EndTime)
	assert.Nil(t, page[0].ProjectNumber)

	require.NoError(t, store.Drop(ctx, original))
	tables, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.Zero(t, countView(t, ctx, store, db))

	// dropping twice is not an error
	require.NoError(t, store.Drop(ctx, original))
}

func TestTableStore_RenameMissingTable(t *testing.T) {
	ctx := context.Background()
	db := suite.SetupSchema(t, ctx)
	store := repository.NewTableStore(db, "", logger.Nop())

	renamed, err := store.Rename(ctx, "t_Ghost_Employee", "t_Ghost_Renamed")
	require.NoError(t, err)
	assert.False(t, renamed)
}

func TestWorkRecordRepository_ConstraintsAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	db := suite.SetupSchema(t, ctx)
	store := repository.NewTableStore(db, "", logger.Nop())
	records := repository.NewWorkRecordRepository(db)

	require.NoError(t, store.Create(ctx, "t_Peter_Kovac"))

	_, err := records.Create(ctx, "t_Peter_Kovac", &repository.NewWorkRecord{
		Date: timecalc.NewDate(2025, 1, 15), ActivityTypeID: 1,
		StartTime: "08:00:00", EndTime: "16:00:00", Distance: decimal.NewFromInt(-5),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = records.Create(ctx, "t_Peter_Kovac", &repository.NewWorkRecord{
		Date: timecalc.NewDate(2025, 1, 15), ActivityTypeID: 999,
		StartTime: "08:00:00", EndTime: "16:00:00",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	_, _, err = records.Query(ctx, "t_Nobody_Here", repository.RecordFilter{
		From: timecalc.NewDate(2025, 1, 1), To: timecalc.NewDate(2025, 1, 31), Limit: 10,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSchemaOperationFailed))
}
