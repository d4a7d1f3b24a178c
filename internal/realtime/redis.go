package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Subscriber opens confirmed pub/sub subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// RedisDialer subscribes to the account channels of one session plus the
// broadcast channel.
type RedisDialer struct {
	sub      Subscriber
	channels []string
}

func NewRedisDialer(sub Subscriber, prefix string, accounts ...uuid.UUID) *RedisDialer {
	channels := make([]string, 0, len(accounts)+1)
	for _, id := range accounts {
		if id == uuid.Nil {
			continue
		}
		channels = append(channels, AccountChannel(prefix, id))
	}
	channels = append(channels, BroadcastChannel(prefix))
	return &RedisDialer{sub: sub, channels: channels}
}

// Channels lists the channels each Dial subscribes to.
func (d *RedisDialer) Channels() []string {
	return append([]string(nil), d.channels...)
}

func (d *RedisDialer) Dial(ctx context.Context) (Conn, error) {
	ps, err := d.sub.Subscribe(ctx, d.channels...)
	if err != nil {
		return nil, err
	}
	return newRedisConn(ps), nil
}

// redisConn pumps messages with ReceiveMessage rather than PubSub.Channel so a
// dropped connection surfaces as a closed Messages channel instead of being
// retried silently inside go-redis.
type redisConn struct {
	ps     *goredis.PubSub
	out    chan []byte
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newRedisConn(ps *goredis.PubSub) *redisConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &redisConn{
		ps:     ps,
		out:    make(chan []byte, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.pump(ctx)
	return c
}

func (c *redisConn) pump(ctx context.Context) {
	defer close(c.done)
	defer close(c.out)
	for {
		msg, err := c.ps.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		select {
		case c.out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func (c *redisConn) Messages() <-chan []byte {
	return c.out
}

func (c *redisConn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.err = c.ps.Close()
		<-c.done
	})
	return c.err
}
