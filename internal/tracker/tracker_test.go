package tracker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/loctrack/internal/tracker"
	"github.com/Sumatoshi-tech/loctrack/pkg/badge"
	"github.com/Sumatoshi-tech/loctrack/pkg/chart"
	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
	"github.com/Sumatoshi-tech/loctrack/pkg/history"
	"github.com/Sumatoshi-tech/loctrack/pkg/linecount"
	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
	"github.com/Sumatoshi-tech/loctrack/pkg/repolist"
	"github.com/Sumatoshi-tech/loctrack/pkg/store"
)

const (
	urlOne = "https://example.com/owner/one.git"
	urlTwo = "https://example.com/owner/two.git"
)

var (
	repoOne = repolist.Repo{Name: "owner/one", Key: "owner-one", URL: urlOne}
	repoTwo = repolist.Repo{Name: "owner/two", Key: "owner-two", URL: urlTwo}
)

// growingSource has two commits on May 1 and one on each of May 2 to 4.
func growingSource() source {
	return source{
		log: []commitday.Commit{
			commit("a1", 1, 9),
			commit("a2", 1, 17),
			commit("b1", 2, 10),
			commit("c1", 3, 10),
			commit("d1", 4, 10),
		},
		sizes: map[string]int{"a1": 100, "a2": 120, "b1": 120, "c1": 150, "d1": 100},
	}
}

type env struct {
	root    string
	work    string
	backend *fakeBackend
	store   store.Store
	logs    *bytes.Buffer
	spans   *tracetest.InMemoryExporter
	reader  *sdkmetric.ManualReader
	tracker *tracker.Tracker
}

func (e env) path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

func newEnv(t *testing.T, sources map[string]source, st store.Store) env {
	t.Helper()

	root := t.TempDir()

	e := env{
		root:    root,
		work:    filepath.Join(root, "work"),
		backend: &fakeBackend{sources: sources},
		store:   st,
		logs:    &bytes.Buffer{},
		spans:   tracetest.NewInMemoryExporter(),
		reader:  sdkmetric.NewManualReader(),
	}

	if e.store == nil {
		e.store = store.NewJSONStore(e.path("LOC"))
	}

	require.NoError(t, os.MkdirAll(e.work, 0o755))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(e.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(e.reader))

	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
		require.NoError(t, mp.Shutdown(context.Background()))
	})

	metrics, err := observability.NewRunMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger := slog.New(observability.NewTracingHandler(
		slog.NewTextHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}),
		"loctrack", "test", observability.ModeCLI,
	))

	e.tracker = tracker.New(tracker.Options{
		Backend: e.backend,
		Store:   e.store,
		Counter: linecount.WC{},
		Badges:  badge.NewWriter(e.path("badges")),
		Charts:  chart.NewWriter(e.path("diagrams"), chart.WriterOptions{SVG: true}),
		WorkDir: e.work,
		Logger:  logger,
		Tracer:  tp.Tracer("test"),
		Metrics: metrics,
	})

	return e
}

func (e env) assertWorkDirEmpty(t *testing.T) {
	t.Helper()

	entries, err := os.ReadDir(e.work)
	require.NoError(t, err)
	assert.Empty(t, entries, "clones must be removed")
}

func (e env) badgeMessage(t *testing.T, key string) string {
	t.Helper()

	data, err := os.ReadFile(e.path("badges", key+".json"))
	require.NoError(t, err)

	var doc badge.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NoError(t, badge.Validate(doc))

	return doc.Message
}

func TestTrack_InitialBackfill(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource()}, nil)

	outcome := e.tracker.Track(context.Background(), repoOne)

	require.Equal(t, report.StatusUpdated, outcome.Status, outcome.Error)
	assert.Equal(t, 100, outcome.Lines)
	assert.Equal(t, 4, outcome.Days)
	assert.Equal(t, 3, outcome.Appended)
	assert.Equal(t, 3, outcome.Records)
	assert.Equal(t, "100", outcome.Badge)

	stored, err := e.store.Load(context.Background(), repoOne.Key)
	require.NoError(t, err)
	assert.Equal(t, history.History{
		{Date: "2024-05-01", Lines: 120},
		{Date: "2024-05-03", Lines: 150},
		{Date: "2024-05-04", Lines: 100},
	}, stored)

	assert.Equal(t, "100", e.badgeMessage(t, repoOne.Key))
	assert.FileExists(t, e.path("diagrams", repoOne.Key+".svg"))
	e.assertWorkDirEmpty(t)
}

func TestTrack_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource()}, nil)

	first := e.tracker.Track(context.Background(), repoOne)
	require.Equal(t, report.StatusUpdated, first.Status)

	before, err := os.ReadFile(e.path("LOC", repoOne.Key+".json"))
	require.NoError(t, err)

	second := e.tracker.Track(context.Background(), repoOne)

	require.Equal(t, report.StatusUnchanged, second.Status, second.Error)
	assert.Zero(t, second.Days)
	assert.Zero(t, second.Appended)
	assert.Equal(t, 100, second.Lines, "latest comes from the checked out head")
	assert.Equal(t, "100", second.Badge)

	after, err := os.ReadFile(e.path("LOC", repoOne.Key+".json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTrack_IncrementalDoesNotReselectStoredDay(t *testing.T) {
	t.Parallel()

	src := growingSource()
	e := newEnv(t, map[string]source{urlOne: src}, nil)

	require.NoError(t, e.store.Save(context.Background(), repoOne.Key, history.History{
		{Date: "2024-05-02", Lines: 120},
	}))

	outcome := e.tracker.Track(context.Background(), repoOne)

	require.Equal(t, report.StatusUpdated, outcome.Status, outcome.Error)
	assert.Equal(t, 2, outcome.Days, "only May 3 and May 4 are outstanding")

	stored, err := e.store.Load(context.Background(), repoOne.Key)
	require.NoError(t, err)
	assert.Equal(t, history.History{
		{Date: "2024-05-02", Lines: 120},
		{Date: "2024-05-03", Lines: 150},
		{Date: "2024-05-04", Lines: 100},
	}, stored)
}

func TestTrack_MeasurementFailureCountsZero(t *testing.T) {
	t.Parallel()

	src := source{
		log:   []commitday.Commit{commit("a", 1, 9), commit("broken", 2, 9), commit("c", 3, 9)},
		sizes: map[string]int{"a": 10, "c": 10},
	}
	e := newEnv(t, map[string]source{urlOne: src}, nil)

	outcome := e.tracker.Track(context.Background(), repoOne)

	require.Equal(t, report.StatusUpdated, outcome.Status, outcome.Error)
	assert.Equal(t, 1, outcome.Failures)

	stored, err := e.store.Load(context.Background(), repoOne.Key)
	require.NoError(t, err)
	assert.Equal(t, history.History{
		{Date: "2024-05-01", Lines: 10},
		{Date: "2024-05-02", Lines: 0},
		{Date: "2024-05-03", Lines: 10},
	}, stored)
	assert.Contains(t, e.logs.String(), "counting as zero")
	e.assertWorkDirEmpty(t)
}

func TestTrack_CloneFailureWritesNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{}, nil)

	outcome := e.tracker.Track(context.Background(), repoOne)

	assert.Equal(t, report.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Error, tracker.ErrClone.Error())
	assert.NoFileExists(t, e.path("badges", repoOne.Key+".json"))
	assert.NoFileExists(t, e.path("LOC", repoOne.Key+".json"))
	e.assertWorkDirEmpty(t)
}

func TestTrack_SaveFailureSkipsBadgeAndChart(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource()}, failingStore{})

	outcome := e.tracker.Track(context.Background(), repoOne)

	assert.Equal(t, report.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Error, errDiskFull.Error())
	assert.NoFileExists(t, e.path("badges", repoOne.Key+".json"))
	assert.NoFileExists(t, e.path("diagrams", repoOne.Key+".svg"))
	e.assertWorkDirEmpty(t)
}

func TestTrack_MalformedHistoryStartsOver(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource()}, nil)

	require.NoError(t, os.MkdirAll(e.path("LOC"), 0o755))
	require.NoError(t, os.WriteFile(e.path("LOC", repoOne.Key+".json"), []byte(`{"not":"a list"}`), 0o644))

	outcome := e.tracker.Track(context.Background(), repoOne)

	require.Equal(t, report.StatusUpdated, outcome.Status, outcome.Error)
	assert.Equal(t, 3, outcome.Records)
	assert.Contains(t, e.logs.String(), "stored history unusable")
}

func TestRun_IsolatesFailures(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlTwo: growingSource()}, nil)

	summary := e.tracker.Run(context.Background(), []repolist.Repo{repoOne, repoTwo})

	require.Len(t, summary.Outcomes, 2)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, report.StatusFailed, summary.Outcomes[0].Status)
	assert.Equal(t, report.StatusUpdated, summary.Outcomes[1].Status)
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, "100", e.badgeMessage(t, repoTwo.Key))
	assert.Len(t, e.backend.clones, 2)
	e.assertWorkDirEmpty(t)

	assert.Contains(t, e.logs.String(), "run_id="+summary.RunID)
}

func TestRun_Telemetry(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource()}, nil)

	e.tracker.Run(context.Background(), []repolist.Repo{repoOne, repoTwo})

	names := make(map[string]int)
	for _, s := range e.spans.GetSpans() {
		names[s.Name]++
	}

	assert.Equal(t, 1, names["loctrack.run"])
	assert.Equal(t, 2, names["loctrack.repo"])
	assert.Equal(t, 2, names["loctrack.clone"])
	assert.Equal(t, 1, names["loctrack.backfill"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	total := findSum(rm, "loctrack.repos.total")
	require.NotNil(t, total)

	byStatus := make(map[string]int64)

	for _, dp := range total.DataPoints {
		status, _ := dp.Attributes.Value("status")
		byStatus[status.AsString()] += dp.Value
	}

	assert.Equal(t, map[string]int64{report.StatusUpdated: 1, report.StatusFailed: 1}, byStatus)
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{urlOne: growingSource(), urlTwo: growingSource()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := e.tracker.Run(ctx, []repolist.Repo{repoOne, repoTwo})

	require.Len(t, summary.Outcomes, 2)

	for _, o := range summary.Outcomes {
		assert.Equal(t, report.StatusFailed, o.Status)
		assert.Contains(t, o.Error, tracker.ErrCancelled.Error())
	}

	assert.Empty(t, e.backend.clones)
}

func TestRender_FromStoredHistory(t *testing.T) {
	t.Parallel()

	e := newEnv(t, map[string]source{}, nil)

	require.NoError(t, e.store.Save(context.Background(), repoOne.Key, history.History{
		{Date: "2024-05-01", Lines: 900},
		{Date: "2024-06-01", Lines: 2500},
	}))

	summary := e.tracker.Render(context.Background(), []repolist.Repo{repoOne, repoTwo})

	require.Len(t, summary.Outcomes, 2)

	rendered := summary.Outcomes[0]
	assert.Equal(t, report.StatusRendered, rendered.Status, rendered.Error)
	assert.Equal(t, 2500, rendered.Lines)
	assert.Equal(t, "2.5k", rendered.Badge)
	assert.Equal(t, "2.5k", e.badgeMessage(t, repoOne.Key))
	assert.FileExists(t, e.path("diagrams", repoOne.Key+".svg"))

	empty := summary.Outcomes[1]
	assert.Equal(t, report.StatusRendered, empty.Status)
	assert.Zero(t, empty.Records)
	assert.NoFileExists(t, e.path("badges", repoTwo.Key+".json"))

	assert.Empty(t, e.backend.clones, "render never clones")
}

func findSum(rm metricdata.ResourceMetrics, name string) *metricdata.Sum[int64] {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				return &sum
			}
		}
	}

	return nil
}
