package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenUDP(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_Count(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "userauth"})
	require.NoError(t, err)
	defer client.Close()

	client.Count("login.success", 1, nil)
	assert.Equal(t, "userauth.login.success:1|c", readLine(t, server))
}

func TestClient_CountWithTags(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "userauth"})
	require.NoError(t, err)
	defer client.Close()

	client.Count("login.failure", 1, map[string]string{"reason": "bad_password", "backend": "postgres"})
	assert.Equal(t, "userauth.login.failure:1|c|#backend:postgres,reason:bad_password", readLine(t, server))
}

func TestClient_Timing(t *testing.T) {
	server, addr := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer client.Close()

	client.Timing("validate.duration", 250*time.Millisecond, nil)
	assert.Equal(t, "validate.duration:250|ms", readLine(t, server))
}

func TestClient_DisabledDoesNotDial(t *testing.T) {
	client, err := NewClient(Config{Enabled: false, Address: "localhost:0"})
	require.NoError(t, err)

	// No connection, no panic.
	client.Count("ignored", 1, nil)
	assert.NoError(t, client.Close())
}

func TestClient_NilSafe(t *testing.T) {
	var client *Client
	client.Count("ignored", 1, nil)
	client.Timing("ignored", time.Second, nil)
	assert.NoError(t, client.Close())
}
