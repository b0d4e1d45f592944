package distributed_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	"github.com/vnykmshr/tempo/pkg/ratelimit/distributed"
)

// Example_throttler demonstrates two instances sharing one throttle window.
func Example_throttler() {
	// miniredis stands in for a real Redis server
	server, err := miniredis.Run()
	if err != nil {
		log.Fatalf("Failed to start redis: %v", err)
	}
	defer server.Close()

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer func() { _ = rdb.Close() }()

	newInstance := func(id string) *distributed.Throttler[string] {
		t, err := distributed.NewThrottler(func(job string) {
			fmt.Printf("%s ran %s\n", id, job)
		}, time.Minute, distributed.Config{Redis: rdb, Key: "reports", InstanceID: id})
		if err != nil {
			log.Fatalf("Failed to create throttler: %v", err)
		}
		return t
	}

	ctx := context.Background()
	server1 := newInstance("server-1")
	server2 := newInstance("server-2")

	server1.Call(ctx, "nightly")
	server2.Call(ctx, "nightly")

	// Output:
	// server-1 ran nightly
}

// Example_debouncer demonstrates that only the last caller of a burst executes.
func Example_debouncer() {
	server, err := miniredis.Run()
	if err != nil {
		log.Fatalf("Failed to start redis: %v", err)
	}
	defer server.Close()

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer func() { _ = rdb.Close() }()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newInstance := func(id string) *distributed.Debouncer[string] {
		d, err := distributed.NewDebouncer(func(doc string) {
			fmt.Printf("%s reindexed %s\n", id, doc)
		}, 500*time.Millisecond, distributed.Config{Redis: rdb, Key: "search", InstanceID: id, Clock: clk})
		if err != nil {
			log.Fatalf("Failed to create debouncer: %v", err)
		}
		return d
	}

	ctx := context.Background()
	server1 := newInstance("server-1")
	server2 := newInstance("server-2")

	_ = server1.Call(ctx, "doc-1")
	clk.Advance(100 * time.Millisecond)
	_ = server2.Call(ctx, "doc-1")
	clk.Advance(time.Second)

	// Output:
	// server-2 reindexed doc-1
}
