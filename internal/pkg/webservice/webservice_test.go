package webservice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"gotest.tools/v3/assert"
)

type recorder struct {
	got []msg.Msg
}

func (r *recorder) Write(_ context.Context, m msg.Msg) error {
	r.got = append(r.got, m)
	return nil
}

func newService(t *testing.T) (*Service, *recorder) {
	a, err := analysis.New("../analysis/analysis_test_config.json")
	assert.NilError(t, err)
	res, hist, err := a.RunFile("../analysis/analysis_test_feeder.json")
	assert.NilError(t, err)

	rec := &recorder{}
	s, err := New("./webservice_test_config.json", a, rec)
	assert.NilError(t, err)
	assert.Equal(t, s.config.Port, 8081)
	s.Add(res, hist)
	return s, rec
}

func TestBase(t *testing.T) {
	s, _ := newService(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/", nil)

	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "get returned 200")
}

func TestCapacityGet(t *testing.T) {
	s, _ := newService(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/feeder/F1/availcap", nil)

	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "get returned 200")
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"), "got expected Content-Type in response")

	rows := []analysis.CapacityRow{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Equal(t, len(rows), 8)
	assert.Equal(t, rows[0].ID, "K1")
}

func TestWarningsGet(t *testing.T) {
	s, _ := newService(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/feeder/F1/warnings", nil)

	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	rows := []analysis.WarningRow{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Equal(t, len(rows), 2)
}

func TestUnknownFeeder(t *testing.T) {
	s, _ := newService(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/feeder/F404/availcap", nil)

	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlacementPost(t *testing.T) {
	s, rec := newService(t)
	body, err := json.Marshal(LoadRequest{Load: []float64{100, 100, 100, 100}})
	assert.NilError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "http://example.com/feeder/F1/loadpos", bytes.NewBuffer(body))
	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusCreated, w.Code, "post returned 201")

	rows := []analysis.PlacementRow{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Equal(t, len(rows), 4)
	assert.Equal(t, rows[0].SwitchID, "K1")
	assert.Equal(t, rows[1].TransformerID, "T1")

	assert.Equal(t, len(rec.got), 4)
	assert.Equal(t, rec.got[0].Topic(), msg.Placement)
}

func TestPlacementBadBody(t *testing.T) {
	s, _ := newService(t)
	for _, body := range []string{"not json", `{"Load": [1, 2]}`} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "http://example.com/feeder/F1/loadpos", bytes.NewBufferString(body))
		s.Router().ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestPlacementWrongMethod(t *testing.T) {
	s, _ := newService(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://example.com/feeder/F1/loadpos", nil)
	s.Router().ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
