package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRedis is a minimal in-memory RESP server handling the command
// subset the client speaks.
type fakeRedis struct {
	ln net.Listener

	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	server := &fakeRedis{ln: ln, data: make(map[string]string)}
	go server.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return server
}

func (f *fakeRedis) addr() string { return f.ln.Addr().String() }

func (f *fakeRedis) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		args, err := readTestCommand(reader)
		if err != nil {
			return
		}

		f.mu.Lock()
		switch strings.ToUpper(args[0]) {
		case "PING":
			fmt.Fprint(writer, "+PONG\r\n")
		case "GET":
			value, ok := f.data[args[1]]
			if !ok {
				fmt.Fprint(writer, "$-1\r\n")
			} else {
				fmt.Fprintf(writer, "$%d\r\n%s\r\n", len(value), value)
			}
		case "SET":
			f.data[args[1]] = args[2]
			fmt.Fprint(writer, "+OK\r\n")
		case "DEL":
			removed := 0
			for _, key := range args[1:] {
				if _, ok := f.data[key]; ok {
					delete(f.data, key)
					removed++
				}
			}
			fmt.Fprintf(writer, ":%d\r\n", removed)
		case "FLUSHDB":
			f.data = make(map[string]string)
			fmt.Fprint(writer, "+OK\r\n")
		default:
			fmt.Fprintf(writer, "-ERR unknown command '%s'\r\n", args[0])
		}
		f.mu.Unlock()

		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func readTestCommand(r *bufio.Reader) ([]string, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if prefix != '*' {
		return nil, fmt.Errorf("unexpected prefix %q", prefix)
	}
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, count)
	for i := 0; i < count; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != '$' {
			return nil, fmt.Errorf("unexpected bulk prefix %q", b)
		}
		bulkLenLine, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		bulkLen, err := strconv.Atoi(strings.TrimSpace(bulkLenLine))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, bulkLen+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:bulkLen]))
	}
	return args, nil
}

func TestRedisSetGetDelete(t *testing.T) {
	t.Parallel()

	server := newFakeRedis(t)
	client, err := NewRedis(server.addr())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	if _, found, err := client.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	if err := client.Set(ctx, "greeting", []byte("你好"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, found, err := client.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || string(value) != "你好" {
		t.Fatalf("unexpected value: found=%v value=%q", found, value)
	}

	if err := client.Delete(ctx, "greeting"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, found, _ := client.Get(ctx, "greeting"); found {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestRedisFlush(t *testing.T) {
	t.Parallel()

	server := newFakeRedis(t)
	client, err := NewRedis(server.addr())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, found, _ := client.Get(ctx, "a"); found {
		t.Fatal("expected empty store after flush")
	}
}

func TestRedisReconnectsAfterServerDrop(t *testing.T) {
	t.Parallel()

	server := newFakeRedis(t)
	client, err := NewRedis(server.addr())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("initial ping failed: %v", err)
	}

	// Drop the established connection server-side. The next call fails
	// and resets, the one after dials fresh.
	_ = client.conn.Close()
	_ = client.Ping(ctx)

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping after reconnect failed: %v", err)
	}
}

func TestResolveAddr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "localhost:6379", want: "localhost:6379"},
		{in: "redis://cache.internal:6380", want: "cache.internal:6380"},
		{in: "rediss://cache.internal:6380", want: "cache.internal:6380"},
		{in: "redis://", wantErr: true},
	}

	for _, tc := range cases {
		got, err := resolveAddr(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("resolveAddr(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveAddr(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("resolveAddr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
