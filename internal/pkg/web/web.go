// Package web pushes analysis results to a remote HTTP collector.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	client *http.Client
}

type config struct {
	URL string `json:"URL"`
}

func New(configPath string, system msg.Publisher) (*Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	pid, _ := uuid.NewUUID()
	h := &Handler{
		pid:    pid,
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	if system != nil {
		h.inbox, err = system.Subscribe(pid, msg.Topics...)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Handler) PID() uuid.UUID {
	return h.pid
}

func (h *Handler) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// target is <URL>/feeder/<feeder>/<topic>.
func (h *Handler) target(m msg.Msg) (string, error) {
	row, ok := m.Payload().(analysis.Row)
	if !ok {
		return "", fmt.Errorf("web: unsupported payload %T on topic %v", m.Payload(), m.Topic())
	}
	return fmt.Sprintf("%v/feeder/%v/%v", h.config.URL, row.Key().Feeder, m.Topic()), nil
}

// Write posts the row carried by m as JSON. Any status other than 2xx is an error.
func (h *Handler) Write(ctx context.Context, m msg.Msg) error {
	targetURL, err := h.target(m)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(m.Payload())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", targetURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Run-PID", m.PID().String())

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("web: %v returned %v", targetURL, resp.Status)
	}
	return nil
}

// Process posts inbox messages until the publisher closes the subscription.
func (h *Handler) Process() {
	for m := range h.inbox {
		if err := h.Write(context.Background(), m); err != nil {
			log.Println("[Webservice Handler]", err)
		}
	}
	log.Println("[Webservice Handler] Process Shutdown")
}
