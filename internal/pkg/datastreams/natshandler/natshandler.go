// Package natshandler streams analysis results to a NATS server.
package natshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"

	nats "github.com/nats-io/nats.go"
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	nc     *nats.Conn
}

type config struct {
	Server        string `json:"Server"`
	SubjectPrefix string `json:"SubjectPrefix"`
}

func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New connects to the configured server and subscribes to every result topic of system.
// An unreachable server is retried in the background; publishes are buffered meanwhile.
func New(configPath string, system msg.Publisher) (*Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{Server: nats.DefaultURL, SubjectPrefix: "feedercap"}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.Server, nats.Name("feedercap"), nats.RetryOnFailedConnect(true))
	if err != nil {
		return nil, err
	}

	pid, _ := uuid.NewUUID()
	h := &Handler{
		pid:    pid,
		config: cfg,
		nc:     nc,
	}
	if system != nil {
		h.inbox, err = system.Subscribe(pid, msg.Topics...)
		if err != nil {
			nc.Close()
			return nil, err
		}
	}
	return h, nil
}

// Close flushes pending publishes and closes the connection.
func (h *Handler) Close() error {
	err := h.nc.Flush()
	h.nc.Close()
	return err
}

type envelope struct {
	PID     string      `json:"PID"`
	Topic   string      `json:"Topic"`
	Payload interface{} `json:"Data"`
}

// subject is <prefix>.<feeder>.<topic>.
func (h *Handler) subject(m msg.Msg) (string, error) {
	row, ok := m.Payload().(analysis.Row)
	if !ok {
		return "", fmt.Errorf("natshandler: unsupported payload %T on topic %v", m.Payload(), m.Topic())
	}
	return fmt.Sprintf("%v.%v.%v", h.config.SubjectPrefix, row.Key().Feeder, m.Topic()), nil
}

func encode(m msg.Msg) ([]byte, error) {
	return json.Marshal(envelope{
		PID:     m.PID().String(),
		Topic:   m.Topic().String(),
		Payload: m.Payload(),
	})
}

// Write publishes m as JSON.
func (h *Handler) Write(_ context.Context, m msg.Msg) error {
	subject, err := h.subject(m)
	if err != nil {
		return err
	}
	data, err := encode(m)
	if err != nil {
		return err
	}
	return h.nc.Publish(subject, data)
}

// Process publishes inbox messages until the publisher closes the subscription.
func (h *Handler) Process() {
	log.Println("[NATS client] Process Started")
	for m := range h.inbox {
		if err := h.Write(context.Background(), m); err != nil {
			log.Printf("unable to publish to nats server: %v", err)
		}
	}
	log.Println("[NATS client] Process Shutdown")
}
