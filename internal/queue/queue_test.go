package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := ScanEvent{EventID: "E1", StudentID: "S1", Action: "in", Timestamp: time.Now().UTC()}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-out:
		if got != want {
			t.Errorf("consumed %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestInMemoryConsumerGoneDoesNotLeakForwarder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Nobody reads out: the forwarder picks the event up and blocks on the
	// send. Cancellation must still unwind it and close the channel.
	if err := q.Publish(ctx, ScanEvent{EventID: "E1"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("forwarder goroutine did not exit after cancel")
		}
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, ScanEvent{}); err == nil {
		t.Error("publish on cancelled context must fail")
	}
}

func TestRedisConsumeDeadServerBacksOffAndStops(t *testing.T) {
	// Nothing listens on this address; every BRPop fails immediately. The
	// consume loop must sleep between attempts and exit on cancellation
	// instead of spinning.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	q := NewRedisQueue(client, "test:scans")
	q.errSleep = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("unexpected event from dead server")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not stop after cancel")
	}
}
