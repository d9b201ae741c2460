package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/eventbus"
	"trafficcount/internal/model"
	"trafficcount/internal/repository"
	"trafficcount/internal/service/generator"
	"trafficcount/internal/service/session"
)

type sequenceClock struct {
	times []time.Time
	next  int
}

func (c *sequenceClock) Now() time.Time {
	t := c.times[c.next%len(c.times)]
	c.next++
	return t
}

type channelHandler chan eventbus.Event

func (h channelHandler) HandleEvent(event eventbus.Event) error {
	h <- event
	return nil
}

func newTestDashboard(t *testing.T, store repository.RecordStore, bus eventbus.EventBus, hooks []config.WebhookConfig) *dashboardService {
	t.Helper()
	cfg := config.Dashboard{
		RecordsPerAnalysis:   config.DefaultRecordsPerBatch,
		AutoInterval:         config.DefaultAutoInterval,
		HighTrafficThreshold: config.DefaultHighTrafficLimit,
	}
	sessions := session.NewMemoryStore(cfg.AutoInterval, time.Hour)
	gen := generator.NewWithSeed(store, 7)
	return NewDashboardService(store, gen, sessions, bus, cfg, hooks, zap.NewNop()).(*dashboardService)
}

func TestDashboard_RefreshEmpty(t *testing.T) {
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"))
	svc := newTestDashboard(t, store, nil, nil)

	view, err := svc.Refresh(context.Background(), "s1", model.Entry{})
	require.NoError(t, err)
	assert.True(t, view.Empty)
	assert.Empty(t, view.Records)
	assert.Nil(t, view.Analysis)
	assert.Nil(t, view.Alert)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, Message{Level: LevelInfo, Text: "No data recorded yet."}, view.Messages[0])
}

func TestDashboard_RefreshAutoGenerate(t *testing.T) {
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"))
	svc := newTestDashboard(t, store, nil, nil)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	now := start
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	view, err := svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	assert.True(t, view.Empty, "a new session does not generate on its first pass")

	now = start.Add(5 * time.Second)
	view, err = svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	assert.True(t, view.Empty)

	now = start.Add(11 * time.Second)
	view, err = svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	require.False(t, view.Empty)
	require.Len(t, view.Records, 1)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, LevelInfo, view.Messages[0].Level)
	assert.True(t, strings.HasPrefix(view.Messages[0].Text, "Auto-generated data - Cars: "))

	now = start.Add(15 * time.Second)
	view, err = svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	assert.Len(t, view.Records, 1, "gate fires at most once per interval")

	// another session keeps its own gate
	view, err = svc.Refresh(ctx, "s2", model.Entry{})
	require.NoError(t, err)
	assert.Len(t, view.Records, 1)
}

func TestDashboard_RefreshHighTrafficAlert(t *testing.T) {
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"))
	svc := newTestDashboard(t, store, nil, nil)
	ctx := context.Background()

	view, err := svc.Refresh(ctx, "s1", model.Entry{Cars: 30, Bicycles: 25})
	require.NoError(t, err)
	require.NotNil(t, view.Alert)
	assert.Equal(t, LevelError, view.Alert.Level)
	assert.Equal(t, "High traffic alert! Total manual vehicles: 55", view.Alert.Text)

	view, err = svc.Refresh(ctx, "s1", model.Entry{Cars: 20, Bicycles: 20, Pedestrians: 10})
	require.NoError(t, err)
	assert.Nil(t, view.Alert, "exactly the threshold is not high traffic")

	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "the pending entry is never persisted by refresh")
}

func TestDashboard_RefreshAnalysisEveryBatch(t *testing.T) {
	var times []time.Time
	for i := 0; i < 12; i++ {
		times = append(times, time.Date(2024, 5, 1, 14, i, 0, 0, time.Local))
	}
	for i := 0; i < 12; i++ {
		times = append(times, time.Date(2024, 5, 1, 9, i, 0, 0, time.Local))
	}
	clock := &sequenceClock{times: times}
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"), repository.WithClock(clock.Now))
	svc := newTestDashboard(t, store, nil, nil)
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		_, err := store.Append(ctx, 1, 0, 0)
		require.NoError(t, err)
	}
	view, err := svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	assert.Nil(t, view.Analysis)

	_, err = store.Append(ctx, 1, 0, 0)
	require.NoError(t, err)
	view, err = svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	require.NotNil(t, view.Analysis)
	assert.Equal(t, 9, view.Analysis.PeakHour, "ties go to the lowest hour")
	assert.Equal(t, 12, view.Analysis.PeakTotal)
	assert.Equal(t, "Peak traffic hour: 9:00 - 12 total vehicles", view.Analysis.Headline)
	require.Len(t, view.Analysis.Hourly, 2)

	assert.Equal(t, 14, view.Records[0].Hour(), "records keep storage order")
	assert.Equal(t, 9, view.Series[0].Hour(), "series is sorted by time")

	_, err = store.Append(ctx, 1, 0, 0)
	require.NoError(t, err)
	view, err = svc.Refresh(ctx, "s1", model.Entry{})
	require.NoError(t, err)
	assert.Nil(t, view.Analysis)
}

func TestDashboard_RecordPublishesAndAlerts(t *testing.T) {
	hookBodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hookBodies <- string(body)
	}))
	defer server.Close()

	events := make(channelHandler, 4)
	bus := eventbus.NewEventBus(zap.NewNop())
	require.NoError(t, bus.Subscribe(events))

	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"))
	hooks := []config.WebhookConfig{{Name: "alert", URL: server.URL, Body: `{"total":{{total}}}`}}
	svc := newTestDashboard(t, store, bus, hooks)
	ctx := context.Background()

	record, msg, err := svc.Record(ctx, model.Entry{Cars: 3, Bicycles: 4, Pedestrians: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, record.Total())
	assert.Equal(t, Message{Level: LevelSuccess, Text: "Manual data recorded - Cars: 3, Bicycles: 4, Pedestrians: 5"}, msg)

	select {
	case ev := <-events:
		assert.Equal(t, eventbus.EventRecordAppended, ev.GetType())
		assert.Equal(t, "manual", ev.GetData()["source"])
	case <-time.After(time.Second):
		t.Fatal("record event not published")
	}
	select {
	case body := <-hookBodies:
		t.Fatalf("webhook fired for normal traffic: %s", body)
	case <-time.After(50 * time.Millisecond):
	}

	_, _, err = svc.Record(ctx, model.Entry{Cars: 30, Bicycles: 21})
	require.NoError(t, err)
	select {
	case body := <-hookBodies:
		var payload map[string]int
		require.NoError(t, json.Unmarshal([]byte(body), &payload))
		assert.Equal(t, 51, payload["total"])
	case <-time.After(2 * time.Second):
		t.Fatal("high traffic webhook not fired")
	}

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDashboard_Clear(t *testing.T) {
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"))
	svc := newTestDashboard(t, store, nil, nil)
	ctx := context.Background()

	msg, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, Message{Level: LevelInfo, Text: "No data file found to delete."}, msg)

	_, _, err = svc.Record(ctx, model.Entry{Cars: 1})
	require.NoError(t, err)

	msg, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, Message{Level: LevelSuccess, Text: "All previous traffic data has been cleared!"}, msg)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDashboard_Analyze(t *testing.T) {
	clock := &sequenceClock{times: []time.Time{
		time.Date(2024, 5, 1, 5, 0, 0, 0, time.Local),
		time.Date(2024, 5, 1, 5, 30, 0, 0, time.Local),
		time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local),
	}}
	store := repository.NewCSVRecordStore(filepath.Join(t.TempDir(), "traffic_counts.csv"), repository.WithClock(clock.Now))
	svc := newTestDashboard(t, store, nil, nil)
	ctx := context.Background()

	_, err := svc.Analyze(ctx)
	assert.True(t, IsEmptyInput(err))

	for _, total := range []int{10, 5, 7} {
		_, err := store.Append(ctx, total, 0, 0)
		require.NoError(t, err)
	}
	view, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, view.PeakHour)
	assert.Equal(t, 15, view.PeakTotal)
	assert.Equal(t, "Peak traffic hour: 5:00 - 15 total vehicles", view.Headline)
}
