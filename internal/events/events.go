// Package events publishes index outcomes on NATS.
//
// Every finished index attempt becomes one JSON IndexEvent on
// <prefix>.indexed.<repo>. Publishing is best effort: failures are logged
// and never reach the indexing caller.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// IndexEvent describes one index attempt.
type IndexEvent struct {
	Repo        string    `json:"repo"`
	Documents   int       `json:"documents"`
	Redacted    int       `json:"redacted"`
	Dirs        int       `json:"dirs"`
	Files       int       `json:"files"`
	Errors      int       `json:"errors"`
	Undecodable int       `json:"undecodable"`
	State       string    `json:"state,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	At          time.Time `json:"at"`
}

// Publisher sends IndexEvents. It implements repository.Observer.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

var _ repository.Observer = (*Publisher)(nil)

// NewPublisher publishes on nc under prefix.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger, now: time.Now}
}

// Connect dials url and returns a Publisher owning the connection.
func Connect(url, prefix string, logger *logging.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("repolens"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	return NewPublisher(nc, prefix, logger), nil
}

// Subject returns the subject events for repo are published on.
func Subject(prefix, repo string) string {
	return prefix + ".indexed." + subjectToken(repo)
}

// subjectToken keeps a repository name a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// NewIndexEvent converts an index outcome. res may be nil when the
// repository could not be resolved; repo is used as the name then.
func NewIndexEvent(repo string, res *repository.IndexResult, err error, at time.Time) IndexEvent {
	ev := IndexEvent{Repo: repo, At: at.UTC()}
	if res != nil {
		ev.Repo = res.Repo
		ev.Documents = res.Documents
		ev.Redacted = res.Redacted
		ev.Dirs = res.Stats.Dirs
		ev.Files = res.Stats.Files
		ev.Errors = res.Stats.Errors
		ev.Undecodable = res.Stats.Undecodable
		ev.DurationMS = res.Duration.Milliseconds()
		if err == nil {
			ev.State = res.State.String()
		}
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// IndexFinished publishes the outcome of one index attempt.
func (p *Publisher) IndexFinished(ctx context.Context, res *repository.IndexResult, err error) {
	ev := NewIndexEvent(logging.RepoFromContext(ctx), res, err, p.now())
	if pubErr := p.Publish(ev); pubErr != nil {
		p.logger.Warn(ctx, "publishing index event failed", zap.Error(pubErr))
	}
}

// Publish sends ev and flushes so the event is on the wire before return.
func (p *Publisher) Publish(ev IndexEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal index event: %w", err)
	}
	if err := p.nc.Publish(Subject(p.prefix, ev.Repo), data); err != nil {
		return fmt.Errorf("publish index event: %w", err)
	}
	return p.nc.Flush()
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// Subscribe delivers every IndexEvent published under prefix to fn.
// Messages that do not decode are skipped.
func Subscribe(nc *nats.Conn, prefix string, fn func(IndexEvent)) (*nats.Subscription, error) {
	return nc.Subscribe(prefix+".indexed.*", func(msg *nats.Msg) {
		var ev IndexEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		fn(ev)
	})
}
