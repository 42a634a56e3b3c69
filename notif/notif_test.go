package notif

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/joshjon/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/internal/testutil"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNotifierNamespaceChanged(t *testing.T) {
	ctx := context.Background()
	pub := new(capturePublisher)
	notifier := NewNotifier(pub, log.NewLogger(log.WithDevelopment()))

	ns := catalog.NewNamespace(testutil.RandName(), constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
	notifier.NamespaceChanged(ctx, OpCreated, ns)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "rivulet.catalog.namespace.created", pub.subjects[0])

	var event Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "namespace", event.Type)
	assert.Equal(t, OpCreated, event.Op)
	assert.False(t, event.Time.IsZero())

	var got catalog.Namespace
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, *ns, got)
}

func TestNotifierMappingChanged(t *testing.T) {
	ctx := context.Background()
	pub := new(capturePublisher)
	notifier := NewNotifier(pub, log.NewLogger(log.WithDevelopment()))

	mapping := catalog.ServiceClusterMapping{
		NamespaceID: catalog.NewID[catalog.NamespaceID](),
		ServiceName: "STORM",
		ClusterID:   catalog.NewID[catalog.ClusterID](),
	}
	notifier.MappingChanged(ctx, OpDeleted, mapping)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "rivulet.catalog.mapping.deleted", pub.subjects[0])

	var event Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, "mapping", event.Type)
	assert.Equal(t, OpDeleted, event.Op)

	var got catalog.ServiceClusterMapping
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, mapping, got)
}

func TestNotifierTopologyChanged(t *testing.T) {
	ctx := context.Background()
	pub := new(capturePublisher)
	notifier := NewNotifier(pub, log.NewLogger(log.WithDevelopment()))

	top := catalog.NewTopology(catalog.NewID[catalog.NamespaceID](), testutil.RandName())
	notifier.TopologyChanged(ctx, OpUpdated, top)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "rivulet.catalog.topology.updated", pub.subjects[0])
}

func TestNotifierDropsPublishFailure(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{err: errors.New("publish failed")}
	notifier := NewNotifier(pub, log.NewLogger(log.WithDevelopment()))

	ns := catalog.NewNamespace(testutil.RandName(), constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
	notifier.NamespaceChanged(ctx, OpCreated, ns)

	assert.Empty(t, pub.subjects)
}
