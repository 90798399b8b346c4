// Command min-peer runs one MIN transport endpoint over a real UART,
// bridging delivered messages and outbound commands to Redis and
// exposing transport counters over Prometheus. Structurally follows
// the teacher's cmd/bluetooth-service/main.go: parse flags, connect to
// Redis, open the serial link, start the background watchers, wait for
// a signal, shut down.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/min-protocol/min-go/pkg/bridge"
	"github.com/min-protocol/min-go/pkg/min"
	"github.com/min-protocol/min-go/pkg/minmetrics"
	"github.com/min-protocol/min-go/pkg/serialhw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	serialDevice := pflag.StringP("device", "d", "/dev/ttyS5", "Serial device path")
	baudRate := pflag.IntP("baud", "b", 115200, "Serial baud rate")
	minPort := pflag.Uint8("min-port", 0, "MIN port tag attached to every frame")
	transportEnabled := pflag.Bool("transport", true, "Enable the sliding-window transport layer")
	redisAddr := pflag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass := pflag.String("redis-pass", "", "Redis password")
	redisDB := pflag.Int("redis-db", 0, "Redis database number")
	inKey := pflag.String("redis-in-key", "min:out", "Redis list BRPOP drains outbound commands from")
	outChannel := pflag.String("redis-out-channel", "min:in", "Redis Pub/Sub channel delivered messages are published to")
	metricsAddr := pflag.String("metrics-addr", ":9411", "Prometheus metrics listen address")
	pflag.Parse()

	log.Info("starting min-peer",
		"device", *serialDevice, "baud", *baudRate, "transport", *transportEnabled)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: *redisPass,
		DB:       *redisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()
	log.Info("connected to redis", "addr", *redisAddr)

	incoming := make(chan byte, 4096)
	hw, err := serialhw.Open(*serialDevice, *baudRate, func(b byte) { incoming <- b }, log.Default())
	if err != nil {
		log.Fatal("failed to open serial device", "error", err)
	}
	defer hw.Close()
	log.Info("opened serial device")

	ctx := min.New("min-peer", hw, *minPort, *transportEnabled)
	b := bridge.New(ctx, redisClient, *inKey, *outChannel, log.Default())
	log.Info("bridge session started", "session", b.SessionID().String())

	collector := minmetrics.NewCollector([]string{"device"}, nil)
	collector.Add("peer", ctx, []string{*serialDevice})
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		log.Fatal("failed to register metrics collector", "error", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		log.Info("serving metrics", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	done := make(chan struct{})
	go b.WatchCommands()
	go pollLoop(b, incoming)
	go tickLoop(b, done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	close(done)
	b.Stop()
	log.Info("shutting down")
}

// tickLoop drives transport retransmit/ACK housekeeping on a fixed
// cadence, the Go shape of real_uart_on_linux.rs's bare poll(&[], 0)
// call inside its read loop.
func tickLoop(b *bridge.Bridge, done <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

func pollLoop(b *bridge.Bridge, incoming <-chan byte) {
	for by := range incoming {
		buf := []byte{by}
		drain := true
		for drain {
			select {
			case by2 := <-incoming:
				buf = append(buf, by2)
			default:
				drain = false
			}
		}
		b.Poll(buf)
	}
}
