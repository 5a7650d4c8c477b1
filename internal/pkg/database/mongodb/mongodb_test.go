package mongodb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"go.mongodb.org/mongo-driver/bson"
	"gotest.tools/v3/assert"
)

func TestGetConfig(t *testing.T) {
	pid, _ := uuid.NewUUID()
	h, err := New("./mongodb_test_config.json", msg.NewPublisher(pid))
	assert.NilError(t, err)
	defer h.Close()

	assert.Equal(t, h.config.Database, "feedercap_test")
	assert.Equal(t, h.config.uri(), "mongodb://localhost:27017")
}

func TestMsgToBSON(t *testing.T) {
	pid, _ := uuid.NewUUID()
	row := analysis.UnbalanceRow{Feeder: "F1", ID: "T1", Season: analysis.YearSeason, NegI: 0.1, MinPhase: "B"}

	filter, update, err := msgToBSON(msg.New(pid, msg.Unbalance, row))
	assert.NilError(t, err)
	assert.Equal(t, filter["pid"], pid.String())
	assert.Equal(t, filter["device"], "T1")
	assert.Equal(t, filter["season"], -1)

	assert.Equal(t, update[0].Key, "$set")
	set := update[0].Value.(bson.M)
	assert.Equal(t, set["data"], row)

	doc, err := bson.Marshal(set["data"])
	assert.NilError(t, err)
	var back analysis.UnbalanceRow
	assert.NilError(t, bson.Unmarshal(doc, &back))
	assert.Equal(t, back.MinPhase, "B")
}

func TestMsgToBSONRejectsUnknownPayload(t *testing.T) {
	pid, _ := uuid.NewUUID()
	_, _, err := msgToBSON(msg.New(pid, msg.Capacity, "curve"))
	assert.ErrorContains(t, err, "unsupported payload")
}

func TestMsgToBSONKeysWarningsByRelatedDevice(t *testing.T) {
	pid, _ := uuid.NewUUID()
	first := analysis.WarningRow{Feeder: "F1", Kind: "line", ID: "L1", RelatedID: "K1", Level: 1}
	second := analysis.WarningRow{Feeder: "F1", Kind: "line", ID: "L1", RelatedID: "K2", Level: 1}

	f1, _, err := msgToBSON(msg.New(pid, msg.Warning, first))
	assert.NilError(t, err)
	f2, _, err := msgToBSON(msg.New(pid, msg.Warning, second))
	assert.NilError(t, err)

	assert.Equal(t, f1["device"], "line:L1:K1")
	assert.Assert(t, f1["device"] != f2["device"])
}
