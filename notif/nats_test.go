package notif

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/joshjon/kit/log"
	natserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/internal/testutil"
)

func TestNATSPublisherPublish(t *testing.T) {
	srv, err := natserver.NewServer(&natserver.Options{
		Host: "127.0.0.1",
		Port: -1, // random port
	})
	require.NoError(t, err)
	srv.Start()
	defer srv.Shutdown()
	require.True(t, srv.ReadyForConnections(3*time.Second), "nats unhealthy")

	nc, err := ConnectNATS(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	msgChan := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(Subject[catalog.Namespace](OpCreated), msgChan)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	notifier := NewNotifier(NewNATSPublisher(nc), log.NewLogger(log.WithDevelopment()))
	ns := catalog.NewNamespace(testutil.RandName(), constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
	notifier.NamespaceChanged(context.Background(), OpCreated, ns)

	select {
	case msg := <-msgChan:
		var event Event
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "namespace", event.Type)
		assert.Equal(t, OpCreated, event.Op)

		var got catalog.Namespace
		require.NoError(t, json.Unmarshal(event.Data, &got))
		assert.Equal(t, *ns, got)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive event")
	}
}
