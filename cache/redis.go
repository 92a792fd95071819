package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const redisTimeout = 5 * time.Second

// Redis implements Cache over a plain RESP connection. The engine only
// needs the GET/SET/DEL/PING/FLUSHDB subset, so the client speaks the
// protocol directly instead of pulling in a driver.
type Redis struct {
	addr   string
	dialer net.Dialer

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

type reply struct {
	kind  byte
	text  string
	array []reply
	isNil bool
}

// NewRedis creates a client for addr ("host:port" or a redis:// URL).
// The connection is established lazily on first use.
func NewRedis(addr string) (*Redis, error) {
	resolved, err := resolveAddr(addr)
	if err != nil {
		return nil, err
	}
	return &Redis{addr: resolved}, nil
}

// Get fetches a key. A nil bulk reply is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rep, err := r.do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	if rep.isNil {
		return nil, false, nil
	}
	return []byte(rep.text), true, nil
}

// Set stores a key, with PX expiry when ttl is positive.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		millis := ttl.Milliseconds()
		if millis == 0 {
			millis = 1
		}
		args = append(args, "PX", strconv.FormatInt(millis, 10))
	}
	_, err := r.do(ctx, args...)
	return err
}

// Delete removes the given keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.do(ctx, append([]string{"DEL"}, keys...)...)
	return err
}

// Ping probes the store.
func (r *Redis) Ping(ctx context.Context) error {
	rep, err := r.do(ctx, "PING")
	if err != nil {
		return err
	}
	if !strings.EqualFold(rep.text, "PONG") {
		return fmt.Errorf("redis ping: unexpected reply %q", rep.text)
	}
	return nil
}

// Flush removes every key in the current database.
func (r *Redis) Flush(ctx context.Context) error {
	_, err := r.do(ctx, "FLUSHDB")
	return err
}

// Close tears down the connection.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

func (r *Redis) do(ctx context.Context, args ...string) (reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureConn(ctx); err != nil {
		return reply{}, err
	}

	if err := r.conn.SetDeadline(deadlineFromContext(ctx)); err != nil {
		_ = r.reset()
		return reply{}, err
	}

	if err := writeCommand(r.writer, args); err != nil {
		_ = r.reset()
		return reply{}, err
	}
	if err := r.writer.Flush(); err != nil {
		_ = r.reset()
		return reply{}, err
	}

	rep, err := readReply(r.reader)
	if err != nil {
		if shouldReset(err) {
			_ = r.reset()
		}
		return reply{}, err
	}
	if rep.kind == '-' {
		return reply{}, fmt.Errorf("redis error: %s", rep.text)
	}

	_ = r.conn.SetDeadline(time.Time{})
	return rep, nil
}

func (r *Redis) ensureConn(ctx context.Context) error {
	if r.conn != nil {
		return nil
	}

	conn, err := r.dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("redis dial: %w", err)
	}

	r.conn = conn
	r.reader = bufio.NewReader(conn)
	r.writer = bufio.NewWriter(conn)
	return nil
}

func (r *Redis) reset() error {
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		r.reader = nil
		r.writer = nil
		return err
	}
	return nil
}

func deadlineFromContext(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(redisTimeout)
}

func resolveAddr(addr string) (string, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", fmt.Errorf("invalid redis url: %w", err)
		}
		if u.Host == "" {
			return "", fmt.Errorf("redis url missing host")
		}
		return u.Host, nil
	}
	return addr, nil
}

func writeCommand(w *bufio.Writer, args []string) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", len(args)); err != nil {
		return fmt.Errorf("redis write: %w", err)
	}
	for _, arg := range args {
		if _, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(arg), arg); err != nil {
			return fmt.Errorf("redis write: %w", err)
		}
	}
	return nil
}

func readReply(r *bufio.Reader) (reply, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return reply{}, io.EOF
		}
		return reply{}, fmt.Errorf("redis read: %w", err)
	}

	switch prefix {
	case '+', '-', ':':
		line, err := readLine(r)
		if err != nil {
			return reply{}, err
		}
		return reply{kind: prefix, text: line}, nil
	case '$':
		line, err := readLine(r)
		if err != nil {
			return reply{}, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return reply{}, fmt.Errorf("redis bulk length: %w", err)
		}
		if length == -1 {
			return reply{kind: '$', isNil: true}, nil
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return reply{}, fmt.Errorf("redis bulk read: %w", err)
		}
		return reply{kind: '$', text: string(buf[:length])}, nil
	case '*':
		line, err := readLine(r)
		if err != nil {
			return reply{}, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return reply{}, fmt.Errorf("redis array length: %w", err)
		}
		if length == -1 {
			return reply{kind: '*', isNil: true}, nil
		}
		values := make([]reply, 0, length)
		for i := 0; i < length; i++ {
			value, err := readReply(r)
			if err != nil {
				return reply{}, err
			}
			values = append(values, value)
		}
		return reply{kind: '*', array: values}, nil
	default:
		return reply{}, fmt.Errorf("unexpected redis reply type: %q", prefix)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("redis read line: %w", err)
	}
	return strings.TrimSuffix(line, "\r\n"), nil
}

func shouldReset(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
