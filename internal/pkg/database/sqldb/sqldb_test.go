package sqldb

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"gotest.tools/v3/assert"
)

func newHandler(t *testing.T, system msg.Publisher) *Handler {
	h, err := New("./sqldb_test_config.json", system)
	assert.NilError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestGetConfig(t *testing.T) {
	h := newHandler(t, nil)
	assert.Equal(t, h.config.Driver, "sqlite3")
	assert.Equal(t, h.dsn(), ":memory:")
}

func TestDSN(t *testing.T) {
	h := &Handler{config: config{Driver: "mysql", Server: "localhost", Port: 3306, Username: "u", Password: "p", Database: "grid"}}
	assert.Equal(t, h.dsn(), "u:p@tcp(localhost:3306)/grid?parseTime=true")

	h.config.Driver = "postgres"
	assert.Equal(t, h.dsn(), "host=localhost port=3306 user=u password=p dbname=grid sslmode=disable")
}

func TestRebind(t *testing.T) {
	h := &Handler{config: config{Driver: "postgres"}}
	assert.Equal(t, h.rebind("INSERT INTO t (a, b) VALUES (?, ?)"), "INSERT INTO t (a, b) VALUES ($1, $2)")

	h.config.Driver = "sqlite3"
	assert.Equal(t, h.rebind("VALUES (?)"), "VALUES (?)")
}

func TestCurveRoundTrip(t *testing.T) {
	s := encodeCurve([]float64{1.5, 2, -3.25})
	assert.Equal(t, s, "1.5;2;-3.25")

	c, err := decodeCurve(s)
	assert.NilError(t, err)
	assert.DeepEqual(t, c, []float64{1.5, 2, -3.25})
}

func TestWriteCapacityRow(t *testing.T) {
	h := newHandler(t, nil)
	pid, _ := uuid.NewUUID()

	row := analysis.CapacityRow{Feeder: "F1", ID: "K1", Name: "switch one", Season: 2, Curve: []float64{10, 20}}
	err := h.Write(context.Background(), msg.New(pid, msg.Capacity, row))
	assert.NilError(t, err)

	var curve string
	var season int
	err = h.DB().QueryRow(`SELECT season, curve FROM fc_avail_cap WHERE pid = ? AND device = ?`, pid.String(), "K1").Scan(&season, &curve)
	assert.NilError(t, err)
	assert.Equal(t, season, 2)
	assert.Equal(t, curve, "10;20")
}

func TestWriteRejectsUnknownPayload(t *testing.T) {
	h := newHandler(t, nil)
	pid, _ := uuid.NewUUID()
	err := h.Write(context.Background(), msg.New(pid, msg.Capacity, 3.14))
	assert.ErrorContains(t, err, "unsupported payload")
}

func TestProcessDrainsInbox(t *testing.T) {
	pid, _ := uuid.NewUUID()
	pub := msg.NewPublisher(pid)
	h := newHandler(t, pub)

	done := make(chan struct{})
	go func() {
		h.Process()
		close(done)
	}()

	pub.Publish(msg.Warning, analysis.WarningRow{Feeder: "F1", ID: "T1", Kind: "transformer", Level: 1, Ratio: 0.9})
	pub.Publish(msg.Placement, analysis.PlacementRow{Request: "r1", Feeder: "F1", Season: 1, Created: time.Now(), Feasible: true})
	pub.Close()
	<-done

	var n int
	assert.NilError(t, h.DB().QueryRow(`SELECT COUNT(*) FROM fc_dev_warn`).Scan(&n))
	assert.Equal(t, n, 1)
	assert.NilError(t, h.DB().QueryRow(`SELECT COUNT(*) FROM fc_load_pos WHERE feasible`).Scan(&n))
	assert.Equal(t, n, 1)
}

func decodeCurve(s string) ([]float64, error) {
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ";")
	c := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		c[i] = v
	}
	return c, nil
}
