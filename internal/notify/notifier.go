// Package notify publishes tagging lifecycle events to the pub/sub bus
// and an optional outbound webhook, adapted from the teacher's
// internal/notifications package: the same inner/ProtectedNotifier
// wrapping shape, generalized from a single registration-confirmation
// email call to the two lifecycle events in spec §4.5 step 11, and with
// a second (pub/sub) delivery channel the teacher never had.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/domain/tagging"
)

type CompletedEvent struct {
	RepositoryID        string          `json:"repositoryId"`
	RunID               int64           `json:"runId"`
	RepositoryTagCount  int             `json:"repositoryTagCount"`
	FileTagCount        int             `json:"fileTagCount"`
	Trigger             tagging.Trigger `json:"trigger"`
}

type FailedEvent struct {
	RepositoryID string          `json:"repositoryId"`
	RunID        int64           `json:"runId"`
	Trigger      tagging.Trigger `json:"trigger"`
	Transient    bool            `json:"transient"`
	ErrorMessage string          `json:"errorMessage"`
}

type envelope struct {
	Event     string `json:"event"`
	Payload   any    `json:"payload"`
	EmittedAt string `json:"emittedAt"`
}

// Notifier is what the worker pipeline calls at the end of every run.
// Both methods are fire-and-forget: failures are logged, never returned,
// per §4.6 — notification delivery never affects a run's recorded
// outcome.
type Notifier interface {
	NotifyCompleted(ctx context.Context, e CompletedEvent)
	NotifyFailed(ctx context.Context, e FailedEvent)
}

// Publisher is the minimal pub/sub dependency, satisfied by a redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

type CompositeNotifier struct {
	pub     Publisher
	channel string
	webhook *ProtectedWebhook
}

func New(pub Publisher, channel string, webhook *ProtectedWebhook) *CompositeNotifier {
	return &CompositeNotifier{pub: pub, channel: channel, webhook: webhook}
}

func (n *CompositeNotifier) NotifyCompleted(ctx context.Context, e CompletedEvent) {
	n.dispatch(ctx, "tagging.completed", e)
}

func (n *CompositeNotifier) NotifyFailed(ctx context.Context, e FailedEvent) {
	n.dispatch(ctx, "tagging.failed", e)
}

func (n *CompositeNotifier) dispatch(ctx context.Context, name string, payload any) {
	env := envelope{Event: name, Payload: payload, EmittedAt: time.Now().UTC().Format(time.RFC3339)}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("notify: marshal %s: %v", name, err)
		return
	}

	if n.pub != nil {
		if err := n.pub.Publish(ctx, n.channel, string(data)); err != nil {
			log.Printf("notify: publish %s: %v", name, err)
		}
	}

	if n.webhook != nil {
		if err := n.webhook.SendWithRetry(ctx, data); err != nil {
			log.Printf("notify: webhook %s: %v", name, err)
		}
	}
}
