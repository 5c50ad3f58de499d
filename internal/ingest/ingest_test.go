package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/store"
)

func newTestLoader(t *testing.T) (*Loader, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const header = "report_date,state,district,market,commodity,unit,min_price,max_price,modal_price,arrival_qty,trace_id\n"

func TestLoadCSV_SeedsRows(t *testing.T) {
	l, st := newTestLoader(t)

	path := writeCSV(t, header+
		"2024-03-01,maharashtra,central,pune,Onion,Quintal,1100,1300,1200,,tr-1\n"+
		"2024-03-01,gujarat,,rajkot,Onion,Qui,900,1400,1100,50,tr-2\n")

	res, err := l.LoadCSV(context.Background(), path, model.SourceEnam)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Seeded)
	assert.Zero(t, res.Malformed)

	recs, err := st.FetchUnprocessed(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.SourceEnam, recs[0].Source)
	assert.Nil(t, recs[0].ArrivalQty)
	require.NotNil(t, recs[1].ArrivalQty)
	assert.Equal(t, 50.0, *recs[1].ArrivalQty)
}

func TestLoadCSV_ColumnOrderIndependent(t *testing.T) {
	l, st := newTestLoader(t)

	path := writeCSV(t,
		"commodity,market,state,district,report_date,unit,modal_price,max_price,min_price,trace_id,arrival_qty\n"+
			"Onion,pune,maharashtra,central,2024-03-01,Quintal,1200,1300,1100,tr-1,\n")

	res, err := l.LoadCSV(context.Background(), path, model.SourceAgmark)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Seeded)

	recs, err := st.FetchUnprocessed(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Onion", recs[0].Commodity)
	assert.Equal(t, 1200.0, recs[0].ModalPrice)
}

func TestLoadCSV_MalformedRowsDropped(t *testing.T) {
	l, st := newTestLoader(t)

	path := writeCSV(t, header+
		"2024-03-01,maharashtra,central,pune,Onion,Quintal,1100,1300,not-a-price,,tr-1\n"+
		"2024-03-01,maharashtra,central,nashik,,Quintal,1100,1300,1200,,tr-2\n"+
		"2024-03-01,maharashtra,central,rajkot,Onion,Quintal,1100,1300,1250,,tr-3\n")

	res, err := l.LoadCSV(context.Background(), path, model.SourceAgmark)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Seeded)
	assert.Equal(t, 2, res.Malformed)

	recs, err := st.FetchUnprocessed(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rajkot", recs[0].Market)
}

func TestLoadCSV_MissingColumnFailsLoad(t *testing.T) {
	l, _ := newTestLoader(t)

	path := writeCSV(t, "report_date,state,market\n2024-03-01,maharashtra,pune\n")

	_, err := l.LoadCSV(context.Background(), path, model.SourceAgmark)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestLoadCSV_MissingFile(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.LoadCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), model.SourceAgmark)
	require.Error(t, err)
}
