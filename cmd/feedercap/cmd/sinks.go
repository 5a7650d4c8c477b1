package cmd

import (
	"log"
	"sync"

	"github.com/ohowland/feedercap/internal/pkg/database/mongodb"
	"github.com/ohowland/feedercap/internal/pkg/database/sqldb"
	"github.com/ohowland/feedercap/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"github.com/ohowland/feedercap/internal/pkg/web"
)

type handler interface {
	msg.Sink
	Process()
	Close() error
}

// sinks holds the configured result handlers.
type sinks struct {
	handlers []handler
	wg       sync.WaitGroup
}

// openSinks builds a handler for every configured sink. Handlers subscribe to system
// when it is not nil.
func openSinks(system msg.Publisher) (*sinks, error) {
	s := &sinks{}
	if sqlPath != "" {
		h, err := sqldb.New(sqlPath, system)
		if err != nil {
			s.close()
			return nil, err
		}
		s.handlers = append(s.handlers, h)
	}
	if mongoPath != "" {
		h, err := mongodb.New(mongoPath, system)
		if err != nil {
			s.close()
			return nil, err
		}
		s.handlers = append(s.handlers, h)
	}
	if natsPath != "" {
		h, err := natshandler.New(natsPath, system)
		if err != nil {
			s.close()
			return nil, err
		}
		s.handlers = append(s.handlers, h)
	}
	if pushPath != "" {
		h, err := web.New(pushPath, system)
		if err != nil {
			s.close()
			return nil, err
		}
		s.handlers = append(s.handlers, h)
	}
	return s, nil
}

// start launches every handler's process loop.
func (s *sinks) start() {
	for _, h := range s.handlers {
		s.wg.Add(1)
		go func(h handler) {
			defer s.wg.Done()
			h.Process()
		}(h)
	}
}

// wait blocks until every process loop has drained, then closes the handlers.
func (s *sinks) wait() {
	s.wg.Wait()
	s.close()
}

func (s *sinks) close() {
	for _, h := range s.handlers {
		if err := h.Close(); err != nil {
			log.Println("[Main] sink close:", err)
		}
	}
}

func (s *sinks) list() []msg.Sink {
	out := make([]msg.Sink, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}

// publish streams msgs to every subscribed handler and waits for them to finish.
func publish(msgs []msg.Msg) error {
	system := msg.NewPublisher(analyzer.PID())
	s, err := openSinks(system)
	if err != nil {
		return err
	}
	s.start()
	for _, m := range msgs {
		system.Forward(m)
	}
	system.Close()
	s.wait()
	return nil
}
