package daemon

import (
	"dirmirror/internal/model"
	"dirmirror/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedStatus model.SessionSnapshot

func (f fixedStatus) Snapshot() model.SessionSnapshot {
	return model.SessionSnapshot(f)
}

type fakeHistory struct {
	rows       []model.History
	failedRows []model.History
	stats      repository.Stats
	err        error
	gotLimit   int
}

func (f *fakeHistory) GetRecent(limit int) ([]model.History, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeHistory) GetFailed(limit int) ([]model.History, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.failedRows, nil
}

func (f *fakeHistory) GetStats() (repository.Stats, error) {
	return f.stats, f.err
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStatus(t *testing.T) {
	requires := require.New(t)
	snap := model.SessionSnapshot{
		Source: "/s",
		Dest:   "/d",
		Policy: model.PolicyKeep,
		State:  model.StateReady,
		Copied: 4,
	}
	hist := &fakeHistory{stats: repository.Stats{Total: 5, Success: 4, Failed: 1}}
	s := NewServer(fixedStatus(snap), hist, 0)

	rec := serve(s, http.MethodGet, "/status")
	requires.Equal(http.StatusOK, rec.Code)

	var body struct {
		Session map[string]any    `json:"session"`
		History *repository.Stats `json:"history"`
	}
	requires.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	requires.Equal("READY", body.Session["state"])
	requires.Equal("keep", body.Session["policy"])
	requires.EqualValues(4, body.Session["copied"])
	requires.Equal(&repository.Stats{Total: 5, Success: 4, Failed: 1}, body.History)
}

func TestStatusWithoutHistory(t *testing.T) {
	s := NewServer(fixedStatus(model.SessionSnapshot{StartedAt: time.Now()}), nil, 0)

	rec := serve(s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"history"`)
	require.Contains(t, rec.Body.String(), `"NOT_READY"`)
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{rows: []model.History{{Decision: "COPY", Target: "/d/a"}}}
	s := NewServer(fixedStatus{}, hist, 0)

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
	}{
		{name: "default", target: "/history", wantCode: http.StatusOK, wantLimit: defaultHistoryLimit},
		{name: "explicit", target: "/history?n=5", wantCode: http.StatusOK, wantLimit: 5},
		{name: "capped", target: "/history?n=100000", wantCode: http.StatusOK, wantLimit: maxHistoryLimit},
		{name: "zero", target: "/history?n=0", wantCode: http.StatusBadRequest},
		{name: "garbage", target: "/history?n=abc", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requires := require.New(t)
			hist.gotLimit = 0

			rec := serve(s, http.MethodGet, tt.target)
			requires.Equal(tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				requires.Equal(tt.wantLimit, hist.gotLimit)
				requires.Contains(rec.Body.String(), "/d/a")
			}
		})
	}
}

func TestHistoryFailedOnly(t *testing.T) {
	requires := require.New(t)
	hist := &fakeHistory{
		rows:       []model.History{{Decision: "COPY", Target: "/d/ok"}},
		failedRows: []model.History{{Decision: "COPY", Target: "/d/broken", Status: model.StatusFailed}},
	}
	s := NewServer(fixedStatus{}, hist, 0)

	rec := serve(s, http.MethodGet, "/history?failed=true&n=3")
	requires.Equal(http.StatusOK, rec.Code)
	requires.Equal(3, hist.gotLimit)
	requires.Contains(rec.Body.String(), "/d/broken")
	requires.NotContains(rec.Body.String(), "/d/ok")

	rec = serve(s, http.MethodGet, "/history?failed=false")
	requires.Contains(rec.Body.String(), "/d/ok")
}

func TestHistoryErrors(t *testing.T) {
	s := NewServer(fixedStatus{}, &fakeHistory{err: errors.New("disk I/O error")}, 0)
	rec := serve(s, http.MethodGet, "/history")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	s = NewServer(fixedStatus{}, nil, 0)
	rec = serve(s, http.MethodGet, "/history")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopSignalsOnce(t *testing.T) {
	requires := require.New(t)
	s := NewServer(fixedStatus{}, nil, 0)

	requires.Equal(http.StatusOK, serve(s, http.MethodPost, "/stop").Code)
	requires.Equal(http.StatusOK, serve(s, http.MethodPost, "/stop").Code)

	select {
	case <-s.StopCh():
	case <-time.After(time.Second):
		t.Fatal("stop was not signalled")
	}
}
