package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roadsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"roads.1","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"name":"a","bbox":[0,0,1,1]}},
 {"type":"Feature","id":"roads.2","geometry":{"type":"LineString","coordinates":[[2,2],[3,3]]},"properties":{"name":"b"}}
]}`

const committed = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:TransactionResponse xmlns:wfs="http://www.opengis.net/wfs" xmlns:ogc="http://www.opengis.net/ogc" version="1.1.0">
  <wfs:TransactionSummary>
    <wfs:totalInserted>1</wfs:totalInserted>
    <wfs:totalUpdated>1</wfs:totalUpdated>
    <wfs:totalDeleted>1</wfs:totalDeleted>
  </wfs:TransactionSummary>
  <wfs:InsertResults>
    <wfs:Feature><ogc:FeatureId fid="roads.3"/></wfs:Feature>
  </wfs:InsertResults>
</wfs:TransactionResponse>`

func fakeWFS(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assert.Equal(t, "GetFeature", r.URL.Query().Get("request"))
			assert.Equal(t, "topp:roads", r.URL.Query().Get("typeName"))
			io.WriteString(w, roadsJSON)
			return
		}
		body, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(body), "bbox")
		io.WriteString(w, committed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t    *testing.T
	base string
}

func (c client) do(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(c.t, json.Unmarshal(data, &out))
	}
	return resp, out
}

// stream posts Datastar signals and returns the raw SSE body.
func (c client) stream(path string, signals map[string]any) string {
	c.t.Helper()
	data, err := json.Marshal(signals)
	require.NoError(c.t, err)
	resp, err := http.Post(c.base+path, "application/json", bytes.NewReader(data))
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return string(out)
}

func newTestServer(t *testing.T) client {
	srv := New(Config{Host: "localhost", Port: "0", DataDir: t.TempDir()})
	t.Cleanup(func() { srv.Close() })
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return client{t: t, base: ts.URL}
}

func hasLink(resp *http.Response, rel string) bool {
	for _, l := range resp.Header.Values("Link") {
		if strings.Contains(l, `rel="`+rel+`"`) {
			return true
		}
	}
	return false
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestServer(t)

	resp, body := c.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.True(t, hasLink(resp, "datasets"))

	resp, body = c.do("GET", "/api/v1/info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "plat-wfs", body["name"])
	assert.Equal(t, "1.1.0", body["wfs_version"])
	assert.Equal(t, true, body["db"])
}

func TestEditAndSave(t *testing.T) {
	wfs := fakeWFS(t)
	c := newTestServer(t)

	resp, body := c.do("POST", "/api/v1/datasets", map[string]any{
		"id":           "roads",
		"name":         "Roads",
		"url":          wfs.URL,
		"featureType":  "roads",
		"prefix":       "topp",
		"featureNS":    "http://www.openplans.org/topp",
		"geometryType": "LineString",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "roads", body["id"])

	resp, _ = c.do("GET", "/api/v1/session", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = c.do("POST", "/api/v1/datasets/roads/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "topp:roads", body["typeName"])
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, float64(2), body["stats"].(map[string]any)["features"])
	assert.False(t, hasLink(resp, "save"))

	resp, body = c.do("GET", "/api/v1/session/features?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["data"], 1)
	assert.True(t, hasLink(resp, "next"))

	resp, body = c.do("POST", "/api/v1/session/features", map[string]any{
		"geometry":   map[string]any{"type": "LineString", "coordinates": [][]float64{{5, 5}, {6, 6}}},
		"properties": map[string]any{"name": "c"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "added", body["tag"])
	assert.True(t, hasLink(resp, "rollback"))

	resp, _ = c.do("POST", "/api/v1/session/features", map[string]any{
		"geometry": map[string]any{"type": "Point", "coordinates": []float64{1, 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = c.do("PUT", "/api/v1/session/features/roads.1", map[string]any{
		"properties": map[string]any{"name": "A"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "updated", body["tag"])
	assert.True(t, hasLink(resp, "self"))

	resp, _ = c.do("PUT", "/api/v1/session/features/nope", map[string]any{
		"properties": map[string]any{"name": "A"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do("DELETE", "/api/v1/session/features/roads.2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = c.do("GET", "/api/v1/session/features/roads.1/log", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a", body["original"].(map[string]any)["properties"].(map[string]any)["name"])
	assert.Len(t, body["changes"], 1)

	resp, body = c.do("GET", "/api/v1/session/transaction", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["inserts"], 1)
	assert.Len(t, body["updates"], 1)
	assert.Len(t, body["deletes"], 1)
	assert.Contains(t, body["xml"], "<wfs:Transaction")
	assert.NotContains(t, body["xml"], "bbox")

	resp, body = c.do("GET", "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, hasLink(resp, "save"))

	resp, body = c.do("POST", "/api/v1/session/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, float64(1), body["inserted"])
	assert.Equal(t, []any{"roads.3"}, body["insertedIds"])

	resp, _ = c.do("POST", "/api/v1/session/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = c.do("GET", "/api/v1/session/features/roads.3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unmodified", body["tag"])

	resp, _ = c.do("GET", "/api/v1/session/features/roads.2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest("GET", c.base+"/api/v1/history?dataset=roads", nil)
	hresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer hresp.Body.Close()
	require.Equal(t, http.StatusOK, hresp.StatusCode)
	var records []map[string]any
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&records))
	require.Len(t, records, 3)

	resp, _ = c.do("DELETE", "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = c.do("GET", "/api/v1/session", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOpenSessionLoadFailure(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := down.URL
	down.Close()

	c := newTestServer(t)
	resp, _ := c.do("POST", "/api/v1/datasets", map[string]any{
		"name": "Roads", "url": url, "featureType": "roads",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do("POST", "/api/v1/datasets/roads/session", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, _ = c.do("POST", "/api/v1/datasets/nope/session", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"type":"FeatureCollection","features":[`)
	}))
	defer broken.Close()

	resp, _ = c.do("POST", "/api/v1/datasets", map[string]any{
		"name": "Parcels", "url": broken.URL, "featureType": "parcels",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := c.do("POST", "/api/v1/datasets/parcels/session", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["detail"], "could not be read")
}

func TestSnapshots(t *testing.T) {
	c := newTestServer(t)

	resp, body := c.do("PUT", "/api/v1/snapshots/home", map[string]any{
		"view":          map[string]any{"center": []float64{1, 2}, "zoom": 10},
		"visibleLayers": []string{"roads"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "home", body["name"])

	resp, body = c.do("GET", "/api/v1/snapshots/home", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), body["view"].(map[string]any)["zoom"])

	resp, _ = c.do("DELETE", "/api/v1/snapshots/home", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = c.do("GET", "/api/v1/snapshots/home", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditorSignals(t *testing.T) {
	rivers := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"rivers.1","geometry":{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[2,2],[3,3]]]},"properties":{"name":"a"}}
]}`)
			return
		}
		io.WriteString(w, committed)
	}))
	defer rivers.Close()

	c := newTestServer(t)
	resp, body := c.do("POST", "/api/v1/datasets", map[string]any{
		"name": "Rivers", "url": rivers.URL, "featureType": "rivers",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	resp, body = c.do("POST", "/api/v1/datasets/rivers/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = c.do("POST", "/api/v1/editor/features/rivers.1/parts", map[string]any{"index": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = c.do("POST", "/api/v1/editor/features/rivers.1/attributes", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := c.stream("/api/v1/editor/features/rivers.1/parts", map[string]any{"part": 1})
	assert.Contains(t, out, `"parts":1`)
	assert.Contains(t, out, "Part removed, 1 left")

	out = c.stream("/api/v1/editor/save", map[string]any{"saving": true})
	assert.Contains(t, out, "A save is already in progress")

	resp, body = c.do("GET", "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["stats"].(map[string]any)["updated"], "client-side saving flag does not submit")

	out = c.stream("/api/v1/editor/save", map[string]any{"saving": false})
	assert.Contains(t, out, "Saved: 1 inserted, 1 updated, 1 deleted")
}
