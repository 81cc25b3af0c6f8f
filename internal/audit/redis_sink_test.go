package audit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer speaks just enough RESP2 to accept XADD. Every other command
// gets an error reply, which the client tolerates during its handshake.
func streamServer(t *testing.T) (string, chan []string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	commands := make(chan []string, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveRESP(conn, commands)
		}
	}()
	return ln.Addr().String(), commands
}

func serveRESP(conn net.Conn, commands chan<- []string) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if len(args) > 0 && strings.EqualFold(args[0], "xadd") {
			commands <- args
			_, _ = io.WriteString(conn, "$3\r\n1-0\r\n")
			continue
		}
		_, _ = io.WriteString(conn, "-ERR unknown command\r\n")
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected line %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}

	args := make([]string, n)
	for i := range args {
		header, err := readLine(r)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimPrefix(header, "$"))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:size])
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func testRedisClient(t *testing.T, addr string) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
		DialTimeout:     time.Second,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func receiveCommand(t *testing.T, commands <-chan []string) []string {
	t.Helper()
	select {
	case args := <-commands:
		return args
	case <-time.After(5 * time.Second):
		t.Fatal("no XADD received")
		return nil
	}
}

func fieldPairs(t *testing.T, args []string) map[string]string {
	t.Helper()
	require.Zero(t, len(args)%2, "odd field/value list: %v", args)
	fields := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		fields[args[i]] = args[i+1]
	}
	return fields
}

func expectedFields() map[string]string {
	want := make(map[string]string)
	for k, v := range streamValues(sampleRecord()) {
		want[k] = fmt.Sprint(v)
	}
	return want
}

func TestRedisSinkRecordCapped(t *testing.T) {
	addr, commands := streamServer(t)
	sink := NewRedisSink(testRedisClient(t, addr), "upload_logs", 100)

	require.NoError(t, sink.Record(context.Background(), sampleRecord()))

	args := receiveCommand(t, commands)
	require.GreaterOrEqual(t, len(args), 6)
	assert.Equal(t, []string{"upload_logs", "maxlen", "~", "100", "*"}, args[1:6])
	assert.Equal(t, expectedFields(), fieldPairs(t, args[6:]))
}

func TestRedisSinkRecordUncapped(t *testing.T) {
	addr, commands := streamServer(t)
	sink := NewRedisSink(testRedisClient(t, addr), "upload_logs", 0)

	require.NoError(t, sink.Record(context.Background(), sampleRecord()))

	args := receiveCommand(t, commands)
	require.GreaterOrEqual(t, len(args), 3)
	assert.Equal(t, []string{"upload_logs", "*"}, args[1:3])
	assert.Equal(t, expectedFields(), fieldPairs(t, args[3:]))
}

func TestRedisSinkRecordUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sink := NewRedisSink(testRedisClient(t, addr), "upload_logs", 100)
	err = sink.Record(context.Background(), sampleRecord())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis xadd upload_logs")
}
