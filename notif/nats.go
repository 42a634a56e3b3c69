package notif

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

const natsConnectTimeout = 20 * time.Second

var _ Publisher = (*NATSPublisher)(nil)

// NATSPublisher publishes events to a NATS cluster.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher creates a new NATSPublisher on an existing connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, data []byte) error {
	return p.nc.Publish(subject, data)
}

// ConnectNATS connects to a NATS cluster and blocks until the first
// connection is established.
func ConnectNATS(url string, opts ...nats.Option) (*nats.Conn, error) {
	connectedCh := make(chan struct{})
	var connectedOnce bool

	natsOpts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ConnectHandler(func(nc *nats.Conn) {
			if !connectedOnce {
				close(connectedCh)
				connectedOnce = true
			}
		}),
	}
	natsOpts = append(natsOpts, opts...)

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, err
	}

	select {
	case <-connectedCh:
	case <-time.After(natsConnectTimeout):
		nc.Close()
		return nil, errors.New("nats connect timeout")
	}

	return nc, nil
}
