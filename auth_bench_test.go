package authclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authclient/internal/logging"
	"github.com/MrEthical07/authclient/internal/testbackend"
)

func BenchmarkGetAccepted(b *testing.B) {
	client, backend := newBenchmarkClient(b, false)
	seedBenchmarkTokens(b, client, backend)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if resp := client.Get(context.Background(), testbackend.BarePath); !resp.Success {
			b.Fatalf("request failed: %s", resp.Message)
		}
	}
}

func BenchmarkGetAcceptedRedis(b *testing.B) {
	client, backend := newBenchmarkClient(b, true)
	seedBenchmarkTokens(b, client, backend)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if resp := client.Get(context.Background(), testbackend.BarePath); !resp.Success {
			b.Fatalf("request failed: %s", resp.Message)
		}
	}
}

func BenchmarkRefreshReplay(b *testing.B) {
	client, backend := newBenchmarkClient(b, false)
	seedBenchmarkTokens(b, client, backend)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.ExpireAccess()
		if resp := client.Get(context.Background(), testbackend.BarePath); !resp.Success {
			b.Fatalf("request failed: %s", resp.Message)
		}
	}
}

func BenchmarkGetParallel(b *testing.B) {
	client, backend := newBenchmarkClient(b, false)
	seedBenchmarkTokens(b, client, backend)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if resp := client.Get(context.Background(), testbackend.BarePath); !resp.Success {
				b.Errorf("request failed: %s", resp.Message)
				return
			}
		}
	})
}

func newBenchmarkClient(tb testing.TB, useRedis bool) (*Client, *testbackend.Server) {
	tb.Helper()

	backend := testbackend.New(testbackend.Options{})
	tb.Cleanup(backend.Close)

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = backend.URL
	b := New().WithConfig(cfg).WithLogger(logging.Discard())

	if useRedis {
		mr, err := miniredis.Run()
		if err != nil {
			tb.Fatalf("miniredis.Run failed: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		tb.Cleanup(func() {
			_ = rdb.Close()
			mr.Close()
		})
		b.WithRedis(rdb)
	}

	client, err := b.Build()
	if err != nil {
		tb.Fatalf("build failed: %v", err)
	}
	tb.Cleanup(client.Close)
	return client, backend
}

func seedBenchmarkTokens(tb testing.TB, client *Client, backend *testbackend.Server) {
	tb.Helper()
	access, refresh := backend.Issue("admin")
	if err := client.Credentials().SetTokens(context.Background(), access, refresh); err != nil {
		tb.Fatalf("seed tokens failed: %v", err)
	}
}
