package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/hnsw"
	"github.com/hupe1980/horago/internal/config"
)

func newTestServer(t *testing.T) (*httptest.Server, *horago.BasicMetricsCollector) {
	t.Helper()
	seed := int64(1)
	metrics := &horago.BasicMetricsCollector{}
	reg := horago.New(
		horago.WithMetricsCollector(metrics),
		horago.WithIndexOptions(func(o *hnsw.Options) { o.RandomSeed = &seed }),
		horago.WithStore(blobstore.NewLocalStore(t.TempDir())),
	)
	cfg := config.Default().Server
	srv := NewServer(reg, metrics, &cfg, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, metrics
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func labels(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["results"].([]any)
	require.True(t, ok, "results missing: %v", body)

	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)["label"].(string)
	}
	return out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestLifecycle(t *testing.T) {
	ts, metrics := newTestServer(t)

	status, _ := do(t, ts, http.MethodPut, "/api/v1/indexes/demo", createRequest{Dimension: 8})
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, ts, http.MethodPost, "/api/v1/indexes/demo/vectors", addRequest{
		Items: []vectorInput{
			{Vector: []float64{1, 1, 1, 1, 1, 1, 1, 1}, Label: "id"},
			{Vector: []float64{2, 2, 2, 2, 1, 1, 1, 1}, Label: "id2"},
			{Vector: []float64{0, 0, 0, 0, 1, 1, 1, 1}, Label: "id3"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["added"])

	status, body = do(t, ts, http.MethodPost, "/api/v1/indexes/demo/search", searchRequest{K: 3, Vector: []float64{1, 1, 1, 1, 1, 1, 1, 1}})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, labels(t, body), "unbuilt index yields no results")

	status, body = do(t, ts, http.MethodPost, "/api/v1/indexes/demo/build", buildRequest{Metric: "euclidean"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ok", body["status"])

	status, body = do(t, ts, http.MethodPost, "/api/v1/indexes/demo/search", searchRequest{K: 3, Vector: []float64{1, 1, 1, 1, 1, 1, 1, 1}})
	require.Equal(t, http.StatusOK, status)
	got := labels(t, body)
	require.Len(t, got, 3)
	assert.Equal(t, "id", got[0])

	status, body = do(t, ts, http.MethodPost, "/api/v1/indexes/demo/search", searchRequest{
		K:       1,
		Vectors: [][]float64{{2, 2, 2, 2, 1, 1, 1, 1}, {0, 0, 0, 0, 1, 1, 1, 1}},
	})
	require.Equal(t, http.StatusOK, status)
	batch := body["batch"].([]any)
	require.Len(t, batch, 2)
	assert.Equal(t, "id2", batch[0].([]any)[0].(map[string]any)["label"])
	assert.Equal(t, "id3", batch[1].([]any)[0].(map[string]any)["label"])

	status, body = do(t, ts, http.MethodGet, "/api/v1/indexes/demo/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["items"])
	assert.Equal(t, true, body["built"])
	assert.Equal(t, "euclidean", body["metric"])

	status, body = do(t, ts, http.MethodGet, "/api/v1/indexes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"demo"}, body["indexes"])

	status, body = do(t, ts, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["build_count"])
	assert.EqualValues(t, metrics.GetStats().SearchCount, body["search_count"])

	status, _ = do(t, ts, http.MethodDelete, "/api/v1/indexes/demo", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = do(t, ts, http.MethodDelete, "/api/v1/indexes/demo", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDumpLoad(t *testing.T) {
	ts, _ := newTestServer(t)
	path := "dumps/points.hora"

	do(t, ts, http.MethodPut, "/api/v1/indexes/points", createRequest{Dimension: 2})
	do(t, ts, http.MethodPost, "/api/v1/indexes/points/vectors", addRequest{Vector: []float64{0, 0}, Label: "origin"})
	do(t, ts, http.MethodPost, "/api/v1/indexes/points/vectors", addRequest{Vector: []float64{5, 5}, Label: "far"})
	do(t, ts, http.MethodPost, "/api/v1/indexes/points/build", buildRequest{Metric: "manhattan"})

	status, _ := do(t, ts, http.MethodPost, "/api/v1/indexes/points/dump", pathRequest{Path: path})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, http.MethodPost, "/api/v1/indexes/copy/load", pathRequest{Path: path})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, ts, http.MethodPost, "/api/v1/indexes/copy/search", searchRequest{K: 1, Vector: []float64{4, 4}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"far"}, labels(t, body))

	status, _ = do(t, ts, http.MethodPost, "/api/v1/indexes/copy/load", pathRequest{Path: path + ".missing"})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = do(t, ts, http.MethodPost, "/api/v1/indexes/copy/load", pathRequest{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, ts, http.MethodPost, "/api/v1/indexes/nope/dump", pathRequest{Path: path})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDumpLoadRejectsEscapingPaths(t *testing.T) {
	ts, _ := newTestServer(t)
	outside := filepath.Join(t.TempDir(), "owned.hora")

	do(t, ts, http.MethodPut, "/api/v1/indexes/points", createRequest{Dimension: 2})
	do(t, ts, http.MethodPost, "/api/v1/indexes/points/vectors", addRequest{Vector: []float64{0, 0}, Label: "origin"})

	for _, path := range []string{"../owned.hora", "dumps/../../owned.hora", outside} {
		status, body := do(t, ts, http.MethodPost, "/api/v1/indexes/points/dump", pathRequest{Path: path})
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Contains(t, body["error"], "invalid blob name")

		status, _ = do(t, ts, http.MethodPost, "/api/v1/indexes/copy/load", pathRequest{Path: path})
		assert.Equal(t, http.StatusBadRequest, status, path)
	}

	assert.NoFileExists(t, outside)
}

func TestStatusForInvalidPath(t *testing.T) {
	err := blobstore.ValidateName("../x")
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
}

func TestErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	do(t, ts, http.MethodPut, "/api/v1/indexes/idx", createRequest{Dimension: 3})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"CreateBadDimension", http.MethodPut, "/api/v1/indexes/x", createRequest{}, http.StatusBadRequest},
		{"AddMissingIndex", http.MethodPost, "/api/v1/indexes/nope/vectors", addRequest{Vector: []float64{1}}, http.StatusNotFound},
		{"AddWrongDimension", http.MethodPost, "/api/v1/indexes/idx/vectors", addRequest{Vector: []float64{1}}, http.StatusBadRequest},
		{"AddNothing", http.MethodPost, "/api/v1/indexes/idx/vectors", addRequest{}, http.StatusBadRequest},
		{"BuildEmpty", http.MethodPost, "/api/v1/indexes/idx/build", buildRequest{Metric: "euclidean"}, http.StatusConflict},
		{"BuildMissing", http.MethodPost, "/api/v1/indexes/nope/build", buildRequest{Metric: "euclidean"}, http.StatusNotFound},
		{"SearchMissing", http.MethodPost, "/api/v1/indexes/nope/search", searchRequest{K: 1}, http.StatusNotFound},
		{"SearchWrongDimension", http.MethodPost, "/api/v1/indexes/idx/search", searchRequest{K: 1, Vector: []float64{1}}, http.StatusBadRequest},
		{"StatsMissing", http.MethodGet, "/api/v1/indexes/nope/stats", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("BuildUnknownMetric", func(t *testing.T) {
		do(t, ts, http.MethodPost, "/api/v1/indexes/idx/vectors", addRequest{Vector: []float64{1, 2, 3}, Label: "a"})
		status, _ := do(t, ts, http.MethodPost, "/api/v1/indexes/idx/build", buildRequest{Metric: "hamming"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/v1/indexes/idx/build", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default().Server
	ts := httptest.NewServer(NewServer(horago.New(), nil, &cfg, nil).Handler())
	defer ts.Close()

	status, _ := do(t, ts, http.MethodGet, "/api/v1/metrics", nil)
	assert.Equal(t, http.StatusNotImplemented, status)
}
