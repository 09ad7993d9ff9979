package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSink = errors.New("sink down")

type recorder struct {
	mu     sync.Mutex
	events []trading.Event
	err    error
	block  chan struct{}
}

func (r *recorder) Publish(_ context.Context, e trading.Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) kinds() []trading.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trading.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func auctionEvent(kind trading.EventKind) trading.Event {
	return trading.Event{
		ID:   "e-1",
		Kind: kind,
		At:   time.Unix(1700000000, 0).UTC(),
		Trade: &trading.Trade{
			ID:        "t-1",
			Type:      trading.KindAuction,
			Status:    trading.StatusOpen,
			CreatorID: "111",
			Offer:     trading.BundleOffer{Items: []trading.Line{{ItemID: "oreo", Qty: 2}, {ItemID: "jaffa", Qty: 1}}},
			Request:   trading.AnyRequest{Preferred: &trading.Line{ItemID: "timtam", Qty: 3}},
		},
	}
}

func TestNewMessage_AnyRequest(t *testing.T) {
	msg := NewMessage(auctionEvent(trading.EventTradeCreated))

	require.NotNil(t, msg.Trade)
	assert.True(t, msg.Trade.AnyItem)
	assert.Equal(t, &LineView{ItemID: "timtam", Qty: 3}, msg.Trade.Request)
	assert.Len(t, msg.Trade.Offer, 2)
	assert.Equal(t, "barter.trade.created", RoutingKey(trading.EventTradeCreated))
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	sink := &recorder{}
	d := NewDispatcher(sink, 8, 2, time.Second)

	for _, k := range []trading.EventKind{trading.EventTradeCreated, trading.EventBidPlaced, trading.EventTradeCancelled} {
		require.NoError(t, d.Publish(context.Background(), trading.Event{Kind: k}))
	}
	d.Close()

	assert.ElementsMatch(t,
		[]trading.EventKind{trading.EventTradeCreated, trading.EventBidPlaced, trading.EventTradeCancelled},
		sink.kinds())
	assert.ErrorIs(t, d.Publish(context.Background(), trading.Event{}), ErrClosed)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recorder{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, 1, time.Second)

	// The worker takes the first event and blocks; the second fills the queue.
	require.NoError(t, d.Publish(context.Background(), trading.Event{ID: "1"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Publish(context.Background(), trading.Event{ID: "2"}))

	assert.ErrorIs(t, d.Publish(context.Background(), trading.Event{ID: "3"}), ErrQueueFull)

	close(sink.block)
	d.Close()
	assert.Len(t, sink.kinds(), 2)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok, bad := &recorder{}, &recorder{err: errSink}

	err := Multi{ok, bad}.Publish(context.Background(), trading.Event{Kind: trading.EventTradeCompleted})
	assert.ErrorIs(t, err, errSink)
	assert.Len(t, ok.kinds(), 1)
	assert.Len(t, bad.kinds(), 1)
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{exchange: "barter.events", channel: ch}

	require.NoError(t, p.Publish(context.Background(), auctionEvent(trading.EventTradeCreated)))
	assert.Equal(t, "barter.events", ch.exchange)
	assert.Equal(t, "barter.trade.created", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "e-1", ch.msg.MessageId)
	assert.Equal(t, "t-1", ch.msg.Headers["trade_id"])

	var decoded Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, "trade.created", decoded.Kind)

	ch.err = errSink
	assert.ErrorIs(t, p.Publish(context.Background(), auctionEvent(trading.EventTradeCreated)), errSink)
}

type fakeRedis struct {
	channel string
	payload []byte
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestRedisPublisher_Publish(t *testing.T) {
	fake := &fakeRedis{}
	p := &RedisPublisher{client: fake, channel: "barter:events"}

	require.NoError(t, p.Publish(context.Background(), auctionEvent(trading.EventTradeCancelled)))
	assert.Equal(t, "barter:events", fake.channel)
	assert.Contains(t, string(fake.payload), `"kind":"trade.cancelled"`)
	assert.NoError(t, p.Close())
}

type names map[string]trading.Item

func (n names) Get(_ context.Context, id string) (trading.Item, error) {
	if it, ok := n[id]; ok {
		return it, nil
	}
	return trading.Item{}, trading.ErrNotFound
}

func TestDiscordPublisher_MarketEmbed(t *testing.T) {
	p := NewDiscordPublisher(1, names{"oreo": {ID: "oreo", Name: "Oreo", Icon: "🍪"}})
	ctx := context.Background()

	embed, ok := p.marketEmbed(ctx, auctionEvent(trading.EventTradeCreated))
	require.True(t, ok)
	assert.Contains(t, embed.Description, "2× 🍪 Oreo, 1× jaffa")
	assert.Contains(t, embed.Description, "any bid (prefers **3× timtam**)")

	_, ok = p.marketEmbed(ctx, trading.Event{Kind: trading.EventInventoryAdjusted, UserID: "1"})
	assert.False(t, ok)

	// No client attached yet: publishing is a no-op.
	assert.NoError(t, p.Publish(ctx, auctionEvent(trading.EventTradeCreated)))
}

func TestCreatorToNotify(t *testing.T) {
	assert.Equal(t, "111", creatorToNotify(auctionEvent(trading.EventTradeAccepted)))
	assert.Empty(t, creatorToNotify(auctionEvent(trading.EventTradeCancelled)))
}
