// Package bridge wraps a min.Context with a mutex and drives it from
// Redis: delivered messages are published onto one Pub/Sub channel,
// each prefixed with its port, and an outbound Redis list is drained with BRPOP into
// QueueFrame/SendFrame calls. Generalizes the teacher's
// WatchRedisCommands/SubscribeToRedisChannels pattern from a fixed
// MDB/BLE vocabulary to an arbitrary MIN port/id vocabulary.
package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/min-protocol/min-go/pkg/min"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// OutboundCommand is one line popped off the outbound Redis list:
// "<id>:<hex payload>", e.g. "5:0a0b0c".
type OutboundCommand struct {
	ID      byte
	Payload []byte
}

// ParseOutboundCommand decodes the "<id>:<hex>" wire format used on
// the outbound Redis list.
func ParseOutboundCommand(s string) (OutboundCommand, error) {
	idPart, hexPart, ok := strings.Cut(s, ":")
	if !ok {
		return OutboundCommand{}, fmt.Errorf("bridge: malformed command %q, want \"<id>:<hex>\"", s)
	}
	id, err := strconv.ParseUint(idPart, 10, 8)
	if err != nil {
		return OutboundCommand{}, fmt.Errorf("bridge: malformed id in command %q: %w", s, err)
	}
	payload, err := hex.DecodeString(hexPart)
	if err != nil {
		return OutboundCommand{}, fmt.Errorf("bridge: malformed hex payload in command %q: %w", s, err)
	}
	return OutboundCommand{ID: byte(id), Payload: payload}, nil
}

// Bridge couples one min.Context to Redis. Every exported method is
// safe to call concurrently; the mutex is the "caller-supplied lock"
// that SPEC_FULL.md's concurrency section calls for, since Context
// itself does none of its own locking.
type Bridge struct {
	mu      sync.Mutex
	ctx     *min.Context
	redis   *redis.Client
	rctx    context.Context
	logger  *log.Logger
	id      xid.ID
	inKey   string // Redis list BRPOP drains commands from
	outChan string // Redis Pub/Sub channel delivered messages are published to

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Bridge. inKey is the Redis list name polled for
// outbound commands; outChan is the Pub/Sub channel delivered messages
// are published to, formatted "<port>:<id>:<hex payload>".
func New(ctx *min.Context, redisClient *redis.Client, inKey, outChan string, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	sid := xid.New()
	return &Bridge{
		ctx:     ctx,
		redis:   redisClient,
		rctx:    context.Background(),
		logger:  logger.With("session", sid.String()),
		id:      sid,
		inKey:   inKey,
		outChan: outChan,
		stopCh:  make(chan struct{}),
	}
}

// SessionID returns the correlation id tagging every log line this
// bridge emits, the same way the exporter example tagged each accepted
// connection with an xid.
func (b *Bridge) SessionID() xid.ID { return b.id }

// Poll feeds received bytes into the wrapped Context, then drains and
// publishes any newly delivered messages. Safe to call from a reader
// goroutine while WatchCommands drains the outbound list concurrently.
func (b *Bridge) Poll(bytes []byte) {
	b.mu.Lock()
	b.ctx.Poll(bytes)
	var delivered []struct {
		id      byte
		payload []byte
		port    uint8
	}
	for {
		id, payload, length, port, err := b.ctx.GetMsg()
		if err != nil {
			break
		}
		cp := make([]byte, length)
		copy(cp, payload)
		delivered = append(delivered, struct {
			id      byte
			payload []byte
			port    uint8
		}{id, cp, port})
	}
	b.mu.Unlock()

	for _, d := range delivered {
		msg := fmt.Sprintf("%d:%d:%s", d.port, d.id, hex.EncodeToString(d.payload))
		if err := b.redis.Publish(b.rctx, b.outChan, msg).Err(); err != nil {
			b.logger.Error("failed to publish delivered message", "channel", b.outChan, "error", err)
		}
	}
}

// Send queues or immediately sends a payload depending on whether the
// wrapped Context has transport enabled.
func (b *Bridge) Send(id byte, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx.TransportEnabled() {
		return b.ctx.QueueFrame(id, payload, byte(len(payload)))
	}
	_, err := b.ctx.SendFrame(id, payload, byte(len(payload)))
	return err
}

// Tick drives one round of transport housekeeping (retransmit/ACK
// timers) when no bytes have arrived to Poll with.
func (b *Bridge) Tick() {
	b.mu.Lock()
	b.ctx.Poll(nil)
	b.mu.Unlock()
}

// WatchCommands blocks, draining inKey with BRPOP and forwarding each
// command to Send, until Stop is called. Intended to run in its own
// goroutine, mirroring the teacher's WatchRedisCommands loop.
func (b *Bridge) WatchCommands() {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("starting outbound command watcher", "key", b.inKey)
	for {
		select {
		case <-b.stopCh:
			b.logger.Info("stopping outbound command watcher")
			return
		default:
		}

		result, err := b.redis.BRPop(b.rctx, 1*time.Second, b.inKey).Result()
		if err != nil {
			if err != redis.Nil {
				b.logger.Error("error receiving command from redis", "key", b.inKey, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) != 2 {
			b.logger.Warn("unexpected BRPOP result", "result", result)
			continue
		}

		cmd, err := ParseOutboundCommand(result[1])
		if err != nil {
			b.logger.Error("dropping malformed command", "error", err)
			continue
		}
		if err := b.Send(cmd.ID, cmd.Payload); err != nil {
			b.logger.Error("failed to send command", "id", cmd.ID, "error", err)
		}
	}
}

// Stop signals WatchCommands to exit and waits for it to return.
func (b *Bridge) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}
