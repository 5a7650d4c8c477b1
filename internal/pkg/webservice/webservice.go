// Package webservice serves analysis results over HTTP.
package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/loadpos"
	"github.com/ohowland/feedercap/internal/pkg/msg"
)

type config struct {
	Port int `json:"Port"`
}

type feeder struct {
	result *analysis.Result
	hist   analysis.History
}

// Service holds the latest result of each feeder and answers placement requests
// against it.
type Service struct {
	mux      *sync.RWMutex
	config   config
	analyzer *analysis.Analyzer
	feeders  map[string]feeder
	sinks    []msg.Sink
}

// LoadRequest is the body of a placement request: one kW value per slot.
type LoadRequest struct {
	Load []float64 `json:"Load"`
}

func New(configPath string, a *analysis.Analyzer, sinks ...msg.Sink) (*Service, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{Port: 8080}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}
	return &Service{
		mux:      &sync.RWMutex{},
		config:   cfg,
		analyzer: a,
		feeders:  make(map[string]feeder),
		sinks:    sinks,
	}, nil
}

// Add publishes a feeder result, replacing any earlier one.
func (s *Service) Add(res *analysis.Result, hist analysis.History) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.feeders[res.Feeder.ID] = feeder{result: res, hist: hist}
}

func (s *Service) feeder(id string) (feeder, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	f, ok := s.feeders[id]
	return f, ok
}

func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", BaseHandler)
	r.HandleFunc("/feeder/{feeder}/availcap", s.CapacityHandler).Methods("GET")
	r.HandleFunc("/feeder/{feeder}/warnings", s.WarningHandler).Methods("GET")
	r.HandleFunc("/feeder/{feeder}/loadpos", s.PlacementHandler).Methods("POST")
	return r
}

func (s *Service) ListenAndServe() error {
	port := fmt.Sprintf(":%d", s.config.Port)
	log.Println("[Webservice] Starting Server on Port", port)
	return http.ListenAndServe(port, s.Router())
}

func BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	w.Write(body)
}

func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (feeder, bool) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	id := mux.Vars(r)["feeder"]
	f, ok := s.feeder(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"Error": "unknown feeder " + id})
	}
	return f, ok
}

func (s *Service) CapacityHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.result.CapacityRows())
}

func (s *Service) WarningHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.result.WarningRows())
}

// PlacementHandler places the posted load curve, hands the rows to the sinks and
// returns them.
func (s *Service) PlacementHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookup(w, r)
	if !ok {
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"Error": err.Error()})
		return
	}
	req := LoadRequest{}
	if err := json.Unmarshal(body, &req); err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"Error": err.Error()})
		return
	}

	p, err := s.analyzer.PlaceLoad(f.result, f.hist, req.Load)
	if errors.Is(err, loadpos.ErrBadLoadCurve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"Error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"Error": err.Error()})
		return
	}

	if len(s.sinks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := msg.Fanout(ctx, f.result.PlacementMessages(p), s.sinks...); err != nil {
			log.Println("[Webservice] placement not persisted:", err)
		}
	}
	writeJSON(w, http.StatusCreated, f.result.PlacementRows(p, time.Now()))
}
