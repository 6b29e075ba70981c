package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/danmuck/dectctl/internal/cluster"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := testlog.Logger(t)
	gin.SetMode(gin.TestMode)

	rt := cluster.NewRuntime(logger)
	cfg := cluster.DefaultConfig("cl0")
	cfg.Role = tail.PortablePart
	require.NoError(t, rt.Add(cluster.New(cfg, mac.NewLogService(logger), nil, logger)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return New("dectctl-test", ":0", []string{"http://dash.local"}, rt, logger)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "dectctl_http_requests_total")
}

func TestReceiveThenStatus(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/clusters/cl0/receive", `{"words":["8005000000000000","a000000000000000","nothex"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Results []struct {
			Word  string          `json:"word"`
			Tail  json.RawMessage `json:"tail"`
			Error string          `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 3)
	require.Contains(t, string(out.Results[0].Tail), `"kind":"ssi"`)
	require.Contains(t, out.Results[1].Error, "reserved")
	require.Contains(t, out.Results[2].Error, "parse word")

	rec = do(t, s, http.MethodGet, "/clusters/cl0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Role    string `json:"role"`
		Sysinfo struct {
			Mask string `json:"mask"`
			SSI  struct {
				Slot uint8 `json:"sn"`
			} `json:"ssi"`
		} `json:"sysinfo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "pp", status.Role)
	require.Equal(t, "ssi", status.Sysinfo.Mask)
	require.Equal(t, uint8(5), status.Sysinfo.SSI.Slot)
}

func TestUnknownClusterAndBadBody(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/clusters/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/clusters/cl0/receive", `{"words":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	words := `{"words":["` + strings.Repeat(`8005000000000000","`, receiveBurst) + `8005000000000000"]}`
	rec = do(t, s, http.MethodPost, "/clusters/cl0/receive", words)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, s, http.MethodGet, "/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"name":"cl0"`))
}

func TestConnectionLifecycleThroughAPI(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/clusters/cl0/connections", `{"pmid":74565,"lcn":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info struct {
		MCEI  uint32 `json:"mcei"`
		State string `json:"state"`
		Refs  uint32 `json:"refs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, "OPEN_PENDING", info.State)
	require.Equal(t, uint32(1), info.Refs)

	rec = do(t, s, http.MethodPost, "/clusters/cl0/connections", `{"pmid":74565,"lcn":2}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	path := "/clusters/cl0/connections/" + strconv.FormatUint(uint64(info.MCEI), 10)
	rec = do(t, s, http.MethodPost, path+"/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"state":"OPEN"`)

	rec = do(t, s, http.MethodPost, path+"/confirm", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/clusters/cl0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"state":"OPEN"`)

	rec = do(t, s, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectionRequestValidation(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/clusters/cl0/connections", `{"pmid":2097152}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/clusters/cl0/connections/abc/confirm", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/clusters/nope/connections", `{"pmid":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorsAllowsConfiguredOrigin(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/clusters", nil)
	req.Header.Set("Origin", "http://dash.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
