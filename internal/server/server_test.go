package server

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/manh119/kvengine/internal/config"
	"github.com/manh119/kvengine/internal/offload"
	"github.com/manh119/kvengine/internal/store"
	"github.com/manh119/kvengine/internal/wire"
	"github.com/stretchr/testify/require"
)

func frame(body string) []byte {
	b := []byte(body)
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

func readReply(t *testing.T, c net.Conn) wire.Value {
	t.Helper()
	var hdr [4]byte
	_, err := io.ReadFull(c, hdr[:])
	require.NoError(t, err)
	n := binary.LittleEndian.Uint32(hdr[:])
	body := make([]byte, n)
	_, err = io.ReadFull(c, body)
	require.NoError(t, err)
	v, used, err := wire.Decode(body)
	require.NoError(t, err)
	require.Equal(t, int(n), used)
	return v
}

func TestEventLoopServesGetSetOverRealSocket(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "::1"
	cfg.Port = 19412
	cfg.IdleTimeoutMs = 60_000

	st := store.New(offload.New(nil), nil)
	srv, err := New(cfg, st, nil)
	require.NoError(t, err)
	defer srv.Close()

	go srv.Run()

	conn, err := net.DialTimeout("tcp6", "[::1]:19412", 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write(frame("SET foo bar"))
	require.NoError(t, err)
	v := readReply(t, conn)
	require.Equal(t, wire.TagNil, v.Tag)

	_, err = conn.Write(frame("GET foo"))
	require.NoError(t, err)
	v = readReply(t, conn)
	require.Equal(t, wire.TagStr, v.Tag)
	require.Equal(t, "bar", v.Str)
}

func TestEventLoopPipelinesMultipleRequestsInOneWrite(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "::1"
	cfg.Port = 19413
	cfg.IdleTimeoutMs = 60_000

	st := store.New(offload.New(nil), nil)
	srv, err := New(cfg, st, nil)
	require.NoError(t, err)
	defer srv.Close()

	go srv.Run()

	conn, err := net.DialTimeout("tcp6", "[::1]:19413", 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	batch := append(frame("SET k v"), frame("DEL k")...)
	_, err = conn.Write(batch)
	require.NoError(t, err)

	v := readReply(t, conn)
	require.Equal(t, wire.TagNil, v.Tag)
	v = readReply(t, conn)
	require.Equal(t, wire.TagInt, v.Tag)
	require.EqualValues(t, 1, v.Int)
}
