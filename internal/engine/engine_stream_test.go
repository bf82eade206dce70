package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/testutil"
)

func TestEngine_TriggerOverBus(t *testing.T) {
	_, js, cleanup := testutil.StartJetStream(t)
	defer cleanup()
	store := testutil.OpenStore(t)

	dispatcher := &fakeDispatcher{}
	eng := New(zap.NewNop(), store, NewAggregator(zap.NewNop(), store), dispatcher, js)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	newTestCampaign(t, store, "camp-1", model.CampaignStatusActive, nil)
	addSample(t, store, "camp-1", time.Hour, 100.0, 200.0)
	newTestRule(t, store, "rule-1", nil)

	resultCh := make(chan *BatchResult, 1)
	sub, err := js.Subscribe(evaluationDoneSubject, func(msg *nats.Msg) {
		var result BatchResult
		require.NoError(t, json.Unmarshal(msg.Data, &result))
		resultCh <- &result
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, eng.Trigger(ctx, "test"))

	select {
	case result := <-resultCh:
		require.Equal(t, 1, result.Rules)
		require.Equal(t, 1, result.Triggered)
		require.Empty(t, result.Errors)
	case <-ctx.Done():
		t.Fatal("timeout waiting for batch result")
	}

	require.Equal(t, []string{"rule-1/camp-1"}, dispatcher.dispatched())
}
