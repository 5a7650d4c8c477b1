package msg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Topic classifies the payload of a Msg.
type Topic int

const (
	Capacity Topic = iota
	Rating
	Warning
	Association
	Unbalance
	Placement
)

// Topics lists every result topic.
var Topics = []Topic{Capacity, Rating, Warning, Association, Unbalance, Placement}

func (t Topic) String() string {
	switch t {
	case Capacity:
		return "availcap"
	case Rating:
		return "rating"
	case Warning:
		return "warning"
	case Association:
		return "association"
	case Unbalance:
		return "unbalance"
	case Placement:
		return "loadpos"
	default:
		return fmt.Sprintf("topic(%d)", int(t))
	}
}

var (
	ErrClosed              = errors.New("publisher closed")
	ErrDuplicateSubscriber = errors.New("pid already subscribed")
)

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, ...Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Sink consumes messages one at a time.
type Sink interface {
	Write(context.Context, Msg) error
}

// Msg is an envelope around one result record.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

type subscription struct {
	ch     chan Msg
	topics map[Topic]bool
}

// PubSub broadcasts messages to subscribers by topic.
type PubSub struct {
	mux         *sync.Mutex
	pid         uuid.UUID
	subscribers map[uuid.UUID]subscription
	closed      bool
}

func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:         &sync.Mutex{},
		pid:         pid,
		subscribers: make(map[uuid.UUID]subscription),
	}
}

// Subscribe returns a channel carrying every message on the listed topics. The channel
// closes on Unsubscribe or Close.
func (p *PubSub) Subscribe(pid uuid.UUID, topics ...Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if _, ok := p.subscribers[pid]; ok {
		return nil, fmt.Errorf("%v: %w", pid, ErrDuplicateSubscriber)
	}

	sub := subscription{
		ch:     make(chan Msg, 50),
		topics: make(map[Topic]bool, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}
	p.subscribers[pid] = sub
	return sub.ch, nil
}

// Unsubscribe pid from all topic broadcasts
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if sub, ok := p.subscribers[pid]; ok {
		close(sub.ch)
		delete(p.subscribers, pid)
	}
}

// Publish wraps payload in a Msg from this publisher and forwards it.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.Forward(New(p.pid, topic, payload))
}

// Forward delivers m to every subscriber of its topic.
func (p *PubSub) Forward(m Msg) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	for _, sub := range p.subscribers {
		if sub.topics[m.topic] {
			sub.ch <- m
		}
	}
}

// Close ends every subscription.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for pid, sub := range p.subscribers {
		close(sub.ch)
		delete(p.subscribers, pid)
	}
}

// Fanout writes every message to every sink and joins the failures.
func Fanout(ctx context.Context, msgs []Msg, sinks ...Sink) error {
	var errs []error
	for _, m := range msgs {
		for _, s := range sinks {
			if err := s.Write(ctx, m); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
