package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/notifier"
	"github.com/Dracarys0904/ServiceGo/internal/store/pgstore"
	"github.com/Dracarys0904/ServiceGo/pkg/config"
	"github.com/Dracarys0904/ServiceGo/pkg/db"
	"github.com/Dracarys0904/ServiceGo/pkg/mq"
	"github.com/Dracarys0904/ServiceGo/pkg/obs"
)

var bindings = []string{"booking.*", "review.*"}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())

	shutdownTracer := obs.InitTracer("servicego-notifier")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	gdb := db.Open(cfg.PostgresDSN)
	st := must(pgstore.New(gdb))

	var cons *mq.Consumer
	for {
		c, err := mq.NewConsumer(cfg.RabbitURL, cfg.EventExchange, cfg.NotifyQueue, bindings)
		if err != nil {
			log.Printf("[notifier] connect failed: %v; retry in 2s", err)
			time.Sleep(2 * time.Second)
			continue
		}
		cons = c
		break
	}
	defer cons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := notifier.NewWorker(st, clock.NewSystem(), cons)
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Printf("[notifier] run error: %v", err)
		}
	}()
	log.Printf("[notifier] started. queue=%s exchange=%s bindings=%v", cfg.NotifyQueue, cfg.EventExchange, bindings)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	time.Sleep(200 * time.Millisecond)
	log.Println("[notifier] stopped")
}
