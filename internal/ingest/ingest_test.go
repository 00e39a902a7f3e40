package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridprice/internal/database"
	"github.com/jgoulah/gridprice/internal/usagecsv"
	"github.com/jgoulah/gridprice/pkg/models"
)

const dailyCSV = `Smart Meter Texas - Daily Usage Report
ESIID,Date,Reading Type,Meter Reading (kWh),Actual/Estimated
1234567890123,01/01/2025,C,45.2,A
1234567890123,01/02/2025,C,38.7,A
`

func newService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, zerolog.Nop()), db
}

func TestImport_Idempotent(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	first, err := svc.Import(ctx, KindDaily, "jan.csv", strings.NewReader(dailyCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 0, first.Skipped)
	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)

	again, err := svc.Import(ctx, KindDaily, "jan.csv", strings.NewReader(dailyCSV))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 2, again.Skipped)
	assert.NotEqual(t, first.ID, again.ID)

	rows, err := db.ListUsage(ctx, "1234567890123", models.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 45.2, rows[0].KWh)
}

func TestImport_Interval(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	input := "ESIID,Date,00:15,00:30\n111,01/01/2025,0.5,0.6\n111,01/02/2025,0.3\n"
	rec, err := svc.Import(ctx, KindInterval, "intervals.csv", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Imported)
	assert.Equal(t, "interval", rec.Kind)

	rows, err := db.ListUsage(ctx, "111", models.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.1, rows[0].KWh)
}

func TestImport_ParseErrorStoresNothing(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	input := "ESIID,Date,KWH\n111,01/01/2025,4\n111,01/02/2025,broken\n"
	_, err := svc.Import(ctx, KindDaily, "bad.csv", strings.NewReader(input))

	var numErr *usagecsv.UnparseableNumberError
	require.True(t, errors.As(err, &numErr), "got %v", err)

	rows, err := db.ListUsage(ctx, "111", models.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	history, err := db.ListImports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestImport_MissingHeader(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Import(context.Background(), KindDaily, "junk.csv", strings.NewReader("hello\nworld\n"))
	var headerErr *usagecsv.MissingHeaderError
	assert.True(t, errors.As(err, &headerErr))
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Interval")
	require.NoError(t, err)
	assert.Equal(t, KindInterval, kind)

	kind, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindDaily, kind)

	_, err = ParseKind("hourly")
	assert.Error(t, err)
}
