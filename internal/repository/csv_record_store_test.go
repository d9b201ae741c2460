package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficcount/internal/model"
)

func newTestCSVStore(t *testing.T, opts ...Option) *CSVRecordStore {
	t.Helper()
	return NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"), opts...)
}

func TestCSVRecordStore_LoadMissingCreatesHeader(t *testing.T) {
	store := newTestCSVStore(t)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "Date,Time,Cars,Bicycles,Pedestrians\n", string(data))
}

func TestCSVRecordStore_AppendThenLoad(t *testing.T) {
	store := newTestCSVStore(t)
	ctx := context.Background()

	before := time.Now().Truncate(time.Microsecond)
	_, err := store.Append(ctx, 1, 2, 3)
	require.NoError(t, err)
	_, err = store.Append(ctx, 7, 0, 12)
	require.NoError(t, err)
	after := time.Now()

	records, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	last := records[len(records)-1]
	assert.Equal(t, 7, last.Cars)
	assert.Equal(t, 0, last.Bicycles)
	assert.Equal(t, 12, last.Pedestrians)
	assert.False(t, last.Time.Before(before), "time %v before %v", last.Time, before)
	assert.False(t, last.Time.After(after), "time %v after %v", last.Time, after)
	assert.Equal(t, last.Time.Format(model.DateLayout), last.Date)

	// 插入顺序即读取顺序
	assert.Equal(t, 1, records[0].Cars)
}

func TestCSVRecordStore_FixedClock(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 15, 0, 123456000, time.Local)
	store := newTestCSVStore(t, WithClock(func() time.Time { return at }))

	record, err := store.Append(context.Background(), 4, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", record.Date)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-06-01,2024-06-01 08:15:00.123456,4,5,6")

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, at.Equal(records[0].Time))
}

func TestCSVRecordStore_AppendReturnsStoredTime(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 15, 0, 123456789, time.Local)
	store := newTestCSVStore(t, WithClock(func() time.Time { return at }))

	record, err := store.Append(context.Background(), 1, 2, 3)
	require.NoError(t, err)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, record.Time.Equal(records[0].Time), "appended %v, loaded %v", record.Time, records[0].Time)
	assert.Equal(t, 123456000, record.Time.Nanosecond())
}

func TestCSVRecordStore_Clear(t *testing.T) {
	store := newTestCSVStore(t)
	ctx := context.Background()

	cleared, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.False(t, cleared, "clearing a missing store is a no-op")

	_, err = store.Append(ctx, 1, 1, 1)
	require.NoError(t, err)

	cleared, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, cleared)

	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVRecordStore_MalformedTime(t *testing.T) {
	store := newTestCSVStore(t)
	content := "Date,Time,Cars,Bicycles,Pedestrians\n2024-01-01,yesterday,1,2,3\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.Contains(t, err.Error(), "line 2")

	_, err = store.Append(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestReadCSV_AcceptsPandasTimestamps(t *testing.T) {
	content := strings.Join([]string{
		"Date,Time,Cars,Bicycles,Pedestrians",
		"2024-05-01,2024-05-01 13:45:12.123456,3,4,5",
		"2024-05-01,2024-05-01 14:00:00,0,0,0",
		"2024-05-01,2024-05-01T15:30:00Z,1,0,2",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 13, records[0].Hour())
	assert.Equal(t, 14, records[1].Hour())
	assert.Equal(t, 12, records[0].Total())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad header", "When,Time,Cars,Bicycles,Pedestrians\n"},
		{"short row", "Date,Time,Cars,Bicycles,Pedestrians\n2024-01-01,2024-01-01 10:00:00,1,2\n"},
		{"bad count", "Date,Time,Cars,Bicycles,Pedestrians\n2024-01-01,2024-01-01 10:00:00,x,2,3\n"},
		{"bad date", "Date,Time,Cars,Bicycles,Pedestrians\n01/01/2024,2024-01-01 10:00:00,1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.content))
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestWriteCSV_RoundTripLayout(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 59, 59, 0, time.Local)
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, []model.TrafficRecord{model.NewTrafficRecord(at, 1, 2, 3)}))

	assert.Equal(t,
		"Date,Time,Cars,Bicycles,Pedestrians\n2024-02-29,2024-02-29 23:59:59.000000,1,2,3\n",
		sb.String())
}
