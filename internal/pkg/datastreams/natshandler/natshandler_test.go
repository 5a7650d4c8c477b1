package natshandler

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"gotest.tools/v3/assert"
)

func TestSubject(t *testing.T) {
	h := &Handler{config: config{SubjectPrefix: "grid"}}
	pid, _ := uuid.NewUUID()

	subject, err := h.subject(msg.New(pid, msg.Warning, analysis.WarningRow{Feeder: "F1", ID: "T1"}))
	assert.NilError(t, err)
	assert.Equal(t, subject, "grid.F1.warning")

	subject, err = h.subject(msg.New(pid, msg.Placement, analysis.PlacementRow{Feeder: "F2", Request: "r"}))
	assert.NilError(t, err)
	assert.Equal(t, subject, "grid.F2.loadpos")

	_, err = h.subject(msg.New(pid, msg.Capacity, 1.0))
	assert.ErrorContains(t, err, "unsupported payload")
}

func TestEncode(t *testing.T) {
	pid, _ := uuid.NewUUID()
	row := analysis.CapacityRow{Feeder: "F1", ID: "K1", Season: 3, Curve: []float64{1, 2}}

	data, err := encode(msg.New(pid, msg.Capacity, row))
	assert.NilError(t, err)

	var got struct {
		PID   string
		Topic string
		Data  analysis.CapacityRow
	}
	assert.NilError(t, json.Unmarshal(data, &got))
	assert.Equal(t, got.PID, pid.String())
	assert.Equal(t, got.Topic, "availcap")
	assert.DeepEqual(t, got.Data, row)
}

func TestNewWithoutServer(t *testing.T) {
	pid, _ := uuid.NewUUID()
	h, err := New("./nats_test_config.json", msg.NewPublisher(pid))
	assert.NilError(t, err)
	assert.Equal(t, h.config.SubjectPrefix, "grid.availcap")
	h.nc.Close()
}
