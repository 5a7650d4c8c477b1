// Package sqldb writes analysis results to a relational database.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Handler struct {
	mux    *sync.Mutex
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	db     *sql.DB
}

type config struct {
	Driver      string `json:"Driver"`
	Server      string `json:"Server"`
	Port        int    `json:"Port"`
	Username    string `json:"Username"`
	Password    string `json:"Password"`
	Database    string `json:"Database"`
	Path        string `json:"Path"`
	TablePrefix string `json:"TablePrefix"`
}

func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New opens the database, creates the result tables and subscribes to every result
// topic of system. A nil system leaves the handler usable only through Write.
func New(configPath string, system msg.Publisher) (*Handler, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := config{Driver: "mysql"}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	pid, _ := uuid.NewUUID()
	h := &Handler{
		mux:    &sync.Mutex{},
		pid:    pid,
		config: cfg,
	}

	h.db, err = h.open()
	if err != nil {
		return nil, err
	}
	if err := h.initDBTables(); err != nil {
		h.db.Close()
		return nil, err
	}

	if system != nil {
		h.inbox, err = system.Subscribe(pid, msg.Topics...)
		if err != nil {
			h.db.Close()
			return nil, err
		}
	}
	return h, nil
}

func (h *Handler) dsn() string {
	c := h.config
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%v port=%v user=%v password=%v dbname=%v sslmode=disable",
			c.Server, c.Port, c.Username, c.Password, c.Database)
	case "sqlite3":
		if c.Path == "" {
			return ":memory:"
		}
		return c.Path
	default:
		return fmt.Sprintf("%v:%v@tcp(%v:%v)/%v?parseTime=true", c.Username, c.Password, c.Server, c.Port, c.Database)
	}
}

func (h *Handler) open() (*sql.DB, error) {
	db, err := sql.Open(h.config.Driver, h.dsn())
	if err != nil {
		return nil, err
	}
	if h.config.Driver == "sqlite3" {
		// every sqlite connection opens its own database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// DB exposes the underlying connection pool.
func (h *Handler) DB() *sql.DB {
	return h.db
}

func (h *Handler) Close() error {
	return h.db.Close()
}

// Process writes inbox messages until the publisher closes the subscription.
func (h *Handler) Process() {
	log.Println("[SQL Handler] Process Started")
	for m := range h.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		if err := h.Write(ctx, m); err != nil {
			log.Printf("[SQL Handler] error %v update db", err)
		}
		cancel()
	}
	log.Println("[SQL Handler] Process Shutdown")
}

// Write inserts the row carried by m.
func (h *Handler) Write(ctx context.Context, m msg.Msg) error {
	table, cols, args, err := statement(m)
	if err != nil {
		return err
	}
	args = append([]interface{}{m.PID().String()}, args...)
	cols = append([]string{"pid"}, cols...)

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %v%v (%v) VALUES (%v)", h.config.TablePrefix, table, strings.Join(cols, ", "), marks)

	h.mux.Lock()
	defer h.mux.Unlock()
	_, err = h.db.ExecContext(ctx, h.rebind(query), args...)
	return err
}

func statement(m msg.Msg) (string, []string, []interface{}, error) {
	switch r := m.Payload().(type) {
	case analysis.CapacityRow:
		return "avail_cap",
			[]string{"feeder", "device", "name", "season", "curve"},
			[]interface{}{r.Feeder, r.ID, r.Name, r.Season, encodeCurve(r.Curve)}, nil

	case analysis.RatingRow:
		return "one_line_param",
			[]string{"feeder", "device", "name", "rated_i", "class"},
			[]interface{}{r.Feeder, r.ID, r.Name, r.RatedI, r.Class}, nil

	case analysis.WarningRow:
		return "dev_warn",
			[]string{"feeder", "substation", "level", "kind", "device", "name", "related", "related_name", "max_value", "rated", "ratio"},
			[]interface{}{r.Feeder, r.Substation, r.Level, r.Kind, r.ID, r.Name, r.RelatedID, r.RelatedName, r.Max, r.Rated, r.Ratio}, nil

	case analysis.AssociationRow:
		return "dev_assoc",
			[]string{"feeder", "kind", "from_id", "from_name", "to_id", "to_name"},
			[]interface{}{r.Feeder, r.Kind, r.FromID, r.FromName, r.ToID, r.ToName}, nil

	case analysis.UnbalanceRow:
		return "tf_unbalance",
			[]string{"feeder", "device", "season", "neg_i", "zero_i", "neg_v", "zero_v", "min_phase"},
			[]interface{}{r.Feeder, r.ID, r.Season, r.NegI, r.ZeroI, r.NegV, r.ZeroV, r.MinPhase}, nil

	case analysis.PlacementRow:
		return "load_pos",
			[]string{"request", "feeder", "substation", "season", "created", "feasible", "low_voltage",
				"switch_id", "switch_name", "switch_mean", "switch_min", "switch_rated_i",
				"second_id", "second_name", "second_mean", "second_min",
				"tf_id", "tf_name", "tf_rated", "phase",
				"load_curve", "load_i", "switch_before", "switch_after", "tf_before", "tf_after"},
			[]interface{}{r.Request, r.Feeder, r.Substation, r.Season, r.Created, r.Feasible, r.LowVoltage,
				r.SwitchID, r.SwitchName, r.SwitchMean, r.SwitchMin, r.SwitchRatedI,
				r.SecondID, r.SecondName, r.SecondMean, r.SecondMin,
				r.TransformerID, r.TransformerName, r.TransformerRated, r.Phase,
				encodeCurve(r.Load), encodeCurve(r.LoadI), encodeCurve(r.SwitchBefore), encodeCurve(r.SwitchAfter),
				encodeCurve(r.TransformerBefore), encodeCurve(r.TransformerAfter)}, nil
	}
	return "", nil, nil, fmt.Errorf("sqldb: unsupported payload %T on topic %v", m.Payload(), m.Topic())
}

// rebind rewrites ? placeholders into the $n form postgres expects.
func (h *Handler) rebind(query string) string {
	if h.config.Driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// encodeCurve joins a curve into one ';' separated column value.
func encodeCurve(c []float64) string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

var tables = []string{
	`avail_cap (pid VARCHAR(36), feeder VARCHAR(64), device VARCHAR(64), name VARCHAR(128), season INTEGER, curve TEXT)`,
	`one_line_param (pid VARCHAR(36), feeder VARCHAR(64), device VARCHAR(64), name VARCHAR(128), rated_i DOUBLE PRECISION, class INTEGER)`,
	`dev_warn (pid VARCHAR(36), feeder VARCHAR(64), substation VARCHAR(64), level INTEGER, kind VARCHAR(16),
		device VARCHAR(64), name VARCHAR(128), related VARCHAR(64), related_name VARCHAR(128),
		max_value DOUBLE PRECISION, rated DOUBLE PRECISION, ratio DOUBLE PRECISION)`,
	`dev_assoc (pid VARCHAR(36), feeder VARCHAR(64), kind VARCHAR(32), from_id VARCHAR(64), from_name VARCHAR(128),
		to_id VARCHAR(64), to_name VARCHAR(128))`,
	`tf_unbalance (pid VARCHAR(36), feeder VARCHAR(64), device VARCHAR(64), season INTEGER,
		neg_i DOUBLE PRECISION, zero_i DOUBLE PRECISION, neg_v DOUBLE PRECISION, zero_v DOUBLE PRECISION, min_phase VARCHAR(1))`,
	`load_pos (pid VARCHAR(36), request VARCHAR(36), feeder VARCHAR(64), substation VARCHAR(64), season INTEGER,
		created TIMESTAMP, feasible BOOLEAN, low_voltage BOOLEAN,
		switch_id VARCHAR(64), switch_name VARCHAR(128), switch_mean DOUBLE PRECISION, switch_min DOUBLE PRECISION,
		switch_rated_i DOUBLE PRECISION, second_id VARCHAR(64), second_name VARCHAR(128),
		second_mean DOUBLE PRECISION, second_min DOUBLE PRECISION,
		tf_id VARCHAR(64), tf_name VARCHAR(128), tf_rated DOUBLE PRECISION, phase VARCHAR(1),
		load_curve TEXT, load_i TEXT, switch_before TEXT, switch_after TEXT, tf_before TEXT, tf_after TEXT)`,
}

func (h *Handler) initDBTables() error {
	for _, t := range tables {
		if _, err := h.db.Exec("CREATE TABLE IF NOT EXISTS " + h.config.TablePrefix + t); err != nil {
			return err
		}
	}
	return nil
}
