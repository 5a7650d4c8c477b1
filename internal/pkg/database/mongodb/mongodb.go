// Package mongodb upserts analysis results into one collection per topic.
package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	client *mongo.Client
}

type config struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
	Port     string `json:"Port"`
}

func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New builds the client and subscribes to every result topic of system. The client
// dials lazily, so New succeeds without a reachable server.
func New(configPath string, system msg.Publisher) (*Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	//TODO: Handle reconnection to the MongoDB resource
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(cfg.uri()))
	if err != nil {
		return nil, err
	}

	pid, _ := uuid.NewUUID()
	h := &Handler{
		pid:    pid,
		config: cfg,
		client: client,
	}
	if system != nil {
		h.inbox, err = system.Subscribe(pid, msg.Topics...)
		if err != nil {
			client.Disconnect(context.TODO())
			return nil, err
		}
	}
	return h, nil
}

func (c config) uri() string {
	if c.Port == "" {
		return c.URI
	}
	return c.URI + ":" + c.Port
}

func (h *Handler) Close() error {
	return h.client.Disconnect(context.TODO())
}

// msgToBSON builds the upsert filter and update of a result row. Rows are keyed by run,
// feeder, device and season.
func msgToBSON(m msg.Msg) (bson.M, bson.D, error) {
	row, ok := m.Payload().(analysis.Row)
	if !ok {
		return nil, nil, fmt.Errorf("mongodb: unsupported payload %T on topic %v", m.Payload(), m.Topic())
	}
	//TODO: PID should be written as a binary of subtype 0x04 (UUID standard).
	// currently written as a string.
	key := row.Key()
	filter := bson.M{
		"pid":    m.PID().String(),
		"feeder": key.Feeder,
		"device": key.Device,
		"season": key.Season,
	}
	update := bson.D{
		{Key: "$set", Value: bson.M{
			"data":    row,
			"updated": time.Now(),
		}},
	}
	return filter, update, nil
}

// Write upserts m into the collection named after its topic.
func (h *Handler) Write(ctx context.Context, m msg.Msg) error {
	filter, update, err := msgToBSON(m)
	if err != nil {
		return err
	}
	opts := options.Update().SetUpsert(true)
	_, err = h.client.Database(h.config.Database).Collection(m.Topic().String()).UpdateOne(ctx, filter, update, opts)
	return err
}

// Process writes inbox messages until the publisher closes the subscription.
func (h *Handler) Process() {
	log.Println("[Mongo] Process Started")
	for m := range h.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.Write(ctx, m); err != nil {
			log.Println("[Mongo]", err)
		}
		cancel()
	}
	log.Println("[Mongo] Process Shutdown")
}
