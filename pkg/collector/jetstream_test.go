package collector

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront-Analytics-Bridge/pkg/hits"
	"Storefront-Analytics-Bridge/pkg/logging"
	"Storefront-Analytics-Bridge/pkg/snapshot"
)

type fakeFuture struct {
	ok  chan *nats.PubAck
	err chan error
	msg *nats.Msg
}

func (f *fakeFuture) Ok() <-chan *nats.PubAck { return f.ok }
func (f *fakeFuture) Err() <-chan error       { return f.err }
func (f *fakeFuture) Msg() *nats.Msg          { return f.msg }

type fakeJetStream struct {
	mu         sync.Mutex
	infoErr    error
	addErr     error
	added      []*nats.StreamConfig
	published  []*nats.Msg
	nack       bool
	publishErr error
}

func (f *fakeJetStream) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, cfg)
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) PublishMsgAsync(m *nats.Msg, _ ...nats.PubOpt) (nats.PubAckFuture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, m)
	fut := &fakeFuture{ok: make(chan *nats.PubAck, 1), err: make(chan error, 1), msg: m}
	if f.nack {
		fut.err <- errors.New("nack")
	} else {
		fut.ok <- &nats.PubAck{Stream: "ANALYTICS", Sequence: uint64(len(f.published))}
	}
	return fut, nil
}

func (f *fakeJetStream) messages() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.published...)
}

func snapshotFixture() snapshot.OrderSnapshot {
	return snapshot.OrderSnapshot{CurrencyCode: "USD", TotalPrice: 42.5, Subtotal: 35, Tax: 2.5, Shipping: 5}
}

func newTestJetStream(js *fakeJetStream) *JetStream {
	return NewJetStream(js, "ANALYTICS",
		WithPublisherPool(1, 16),
		WithAckTimeout(time.Second),
		WithJetStreamLogger(logging.Discard()),
	)
}

func TestJetStreamInitCreatesStream(t *testing.T) {
	js := &fakeJetStream{infoErr: nats.ErrStreamNotFound}
	s := newTestJetStream(js)

	require.NoError(t, s.Init(context.Background(), "UA-1-1"))
	defer s.Close()

	require.Len(t, js.added, 1)
	assert.Equal(t, "ANALYTICS", js.added[0].Name)
	assert.Equal(t, []string{"ANALYTICS.hits.*"}, js.added[0].Subjects)
}

func TestJetStreamInitExistingStream(t *testing.T) {
	js := &fakeJetStream{}
	s := newTestJetStream(js)
	require.NoError(t, s.Init(context.Background(), "UA-1-1"))
	defer s.Close()
	assert.Empty(t, js.added)
}

func TestJetStreamInitUnavailable(t *testing.T) {
	s := newTestJetStream(&fakeJetStream{infoErr: nats.ErrNoResponders})
	assert.Error(t, s.Init(context.Background(), "UA-1-1"))

	s = newTestJetStream(&fakeJetStream{infoErr: nats.ErrStreamNotFound, addErr: errors.New("insufficient resources")})
	assert.Error(t, s.Init(context.Background(), "UA-1-1"))
}

func TestJetStreamSendBeforeInit(t *testing.T) {
	s := newTestJetStream(&fakeJetStream{})
	assert.ErrorIs(t, s.Send(context.Background(), hits.NewPageview("/", "")), ErrNotInitialized)
}

func TestJetStreamSendPublishesHitMessages(t *testing.T) {
	js := &fakeJetStream{}
	s := newTestJetStream(js)
	require.NoError(t, s.Init(context.Background(), "UA-1-1"))

	require.NoError(t, s.Send(context.Background(), hits.NewPageview("/#!/cart", "Cart")))
	require.NoError(t, s.Send(context.Background(), hits.NewTransaction("o1", snapshotFixture(), "Main Store")))
	require.NoError(t, s.Close())

	msgs := js.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ANALYTICS.hits.pageview", msgs[0].Subject)
	assert.Equal(t, "ANALYTICS.hits.transaction", msgs[1].Subject)

	var hm HitMessage
	require.NoError(t, json.Unmarshal(msgs[1].Data, &hm))
	assert.Equal(t, "UA-1-1", hm.TrackingID)
	assert.Equal(t, hits.TypeTransaction, hm.Type)

	var tx hits.Transaction
	require.NoError(t, json.Unmarshal(hm.Hit, &tx))
	assert.Equal(t, "o1", tx.ID)
	assert.Equal(t, 42.5, tx.Revenue)
}

func TestJetStreamNackIsDropped(t *testing.T) {
	js := &fakeJetStream{nack: true}
	s := newTestJetStream(js)
	require.NoError(t, s.Init(context.Background(), "UA-1-1"))

	require.NoError(t, s.Send(context.Background(), hits.CustomerEvent(hits.ActionPasswordReset)))
	require.NoError(t, s.Close())

	assert.Len(t, js.messages(), 1, "no retry after NACK")
}

func TestHitPublisherAfterStop(t *testing.T) {
	p := NewHitPublisher(&fakeJetStream{}, 1, 1, time.Second, logging.Discard())
	p.Start()
	p.Stop()
	assert.ErrorIs(t, p.Publish("ANALYTICS.hits.event", []byte("{}")), ErrPublisherStopping)
}

func TestHitPublisherQueueFull(t *testing.T) {
	p := NewHitPublisher(&fakeJetStream{}, 1, 1, time.Second, logging.Discard())
	require.NoError(t, p.Publish("ANALYTICS.hits.event", []byte("{}")))
	assert.ErrorIs(t, p.Publish("ANALYTICS.hits.event", []byte("{}")), ErrPublisherQueueFull)
}
