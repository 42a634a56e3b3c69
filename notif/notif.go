package notif

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joshjon/kit/log"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/logkey"
)

// Op is the catalog operation that produced an event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Event is a catalog change notification.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Op   Op              `json:"op"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

// Publisher publishes serialized events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Notifier publishes catalog change events through a Publisher. Publish
// failures are logged and dropped so that a mutation never fails on account
// of its notification.
type Notifier struct {
	pub    Publisher
	logger log.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(pub Publisher, logger log.Logger) *Notifier {
	return &Notifier{
		pub:    pub,
		logger: logger.With(logkey.Component, "notifier"),
	}
}

// NamespaceChanged publishes a namespace change event.
func (n *Notifier) NamespaceChanged(ctx context.Context, op Op, namespace *catalog.Namespace) {
	publish(ctx, n, op, *namespace)
}

// MappingChanged publishes a service cluster mapping change event.
func (n *Notifier) MappingChanged(ctx context.Context, op Op, mapping catalog.ServiceClusterMapping) {
	publish(ctx, n, op, mapping)
}

// TopologyChanged publishes a topology change event.
func (n *Notifier) TopologyChanged(ctx context.Context, op Op, topology *catalog.Topology) {
	publish(ctx, n, op, *topology)
}

// Subject returns the event subject for an entity type and operation, in the
// form "rivulet.catalog.<entity>.<op>".
func Subject[T catalog.Entity](op Op) string {
	return fmt.Sprintf("%s.catalog.%s.%s", constants.AppName, catalog.GetTypeName[T](), op)
}

func publish[T catalog.Entity](ctx context.Context, n *Notifier, op Op, entity T) {
	data, err := json.Marshal(entity)
	if err != nil {
		n.logger.Error("failed to marshal event data", "error", err)
		return
	}

	event := Event{
		ID:   uuid.NewString(),
		Type: catalog.GetTypeName[T](),
		Op:   op,
		Time: time.Now().UTC(),
		Data: data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal event", "error", err)
		return
	}

	subject := Subject[T](op)
	if err = n.pub.Publish(ctx, subject, payload); err != nil {
		n.logger.Error("failed to publish event",
			"error", err,
			logkey.NotifSubject, subject,
			logkey.NotifEventID, event.ID,
		)
	}
}
