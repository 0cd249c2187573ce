package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dracarys0904/ServiceGo/internal/booking"
	"github.com/Dracarys0904/ServiceGo/internal/bookingform"
	"github.com/Dracarys0904/ServiceGo/internal/catalog"
	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/notification"
	"github.com/Dracarys0904/ServiceGo/internal/store/pgstore"
	transporthttp "github.com/Dracarys0904/ServiceGo/internal/transport/http"
	"github.com/Dracarys0904/ServiceGo/pkg/config"
	"github.com/Dracarys0904/ServiceGo/pkg/db"
	"github.com/Dracarys0904/ServiceGo/pkg/mq"
	"github.com/Dracarys0904/ServiceGo/pkg/obs"
)

const shutdownTimeout = 10 * time.Second

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())

	shutdownTracer := obs.InitTracer("servicego-api")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	gdb := db.Open(cfg.PostgresDSN)
	st := must(pgstore.New(gdb, pgstore.WithPollInterval(cfg.StorePollInterval)))

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.EventExchange))
	defer pub.Close()

	clk := clock.NewSystem()
	cat := catalog.NewReader(st, clk)
	sync := booking.NewSynchronizer(st, pub, clk)
	flow := bookingform.NewFlow(cat, sync, clk)
	stream := notification.NewStream(st)

	nh := transporthttp.NewNotificationHandler(stream)
	defer nh.Close()

	r := transporthttp.Router(
		transporthttp.NewServiceHandler(cat),
		transporthttp.NewBookingHandler(sync, flow),
		nh,
	)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	srvErr := make(chan error, 1)
	go func() {
		log.Println("[api] listening on", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[api] server error: %v", err)
		}
	case <-sig:
		log.Println("[api] shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[api] shutdown error: %v", err)
	}
	log.Println("[api] stopped")
}
