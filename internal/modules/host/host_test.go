package host

import (
	"context"
	"runtime"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskshell/internal/core"
)

func newRegistry(t *testing.T, m *Module) *core.Registry {
	t.Helper()
	r, err := core.NewRegistry(context.Background(), []core.CommandProvider{m})
	require.NoError(t, err)
	return r
}

func TestSystemInfoFromEnvironment(t *testing.T) {
	r := newRegistry(t, New(StaticEnvironment{OSName: "plan9", ArchName: "mips"}, "1.0"))

	resp, err := r.Execute(context.Background(), "get_system_info", nil)
	require.NoError(t, err)
	assert.Equal(t, SystemInfo{OS: "plan9", Version: "1.0", Arch: "mips"}, resp.Data)
}

func TestSystemInfoRuntimeIsIdempotent(t *testing.T) {
	r := newRegistry(t, New(nil, "1.0"))

	first, err := r.Execute(context.Background(), "get_system_info", nil)
	require.NoError(t, err)
	second, err := r.Execute(context.Background(), "get_system_info", nil)
	require.NoError(t, err)

	want := SystemInfo{OS: runtime.GOOS, Version: "1.0", Arch: runtime.GOARCH}
	assert.Equal(t, want, first.Data)
	assert.Equal(t, first.Data, second.Data)
}

func TestUnknownCommand(t *testing.T) {
	r := newRegistry(t, New(nil, "1.0"))
	_, err := r.Execute(context.Background(), "unknown", nil)
	require.ErrorIs(t, err, core.ErrUnknownCommand)
}

func TestListeningEndpoints(t *testing.T) {
	conns := []psnet.ConnectionStat{
		{Type: 1, Status: "LISTEN", Laddr: psnet.Addr{IP: "127.0.0.1", Port: 8080}},
		{Type: 1, Status: "LISTEN", Laddr: psnet.Addr{IP: "127.0.0.1", Port: 8080}},
		{Type: 1, Status: "ESTABLISHED", Laddr: psnet.Addr{IP: "10.0.0.2", Port: 51000}, Raddr: psnet.Addr{IP: "1.1.1.1", Port: 443}},
		{Type: 1, Status: "LISTEN", Laddr: psnet.Addr{IP: "::", Port: 22}},
		{Type: 2, Laddr: psnet.Addr{IP: "0.0.0.0", Port: 5353}},
		{Type: 2, Laddr: psnet.Addr{IP: "0.0.0.0", Port: 0}},
	}
	got := listeningEndpoints(conns)
	assert.Equal(t, []string{"tcp:127.0.0.1:8080", "tcp:[::]:22", "udp:0.0.0.0:5353"}, got)
}

func TestListeningEndpointsWildcardAndIPv6(t *testing.T) {
	conns := []psnet.ConnectionStat{
		{Type: 1, Status: "LISTEN", Laddr: psnet.Addr{IP: "", Port: 9000}},
		{Type: 1, Status: "LISTEN", Laddr: psnet.Addr{IP: "fe80::1", Port: 443}},
		{Type: 2, Laddr: psnet.Addr{IP: "::1", Port: 53}},
	}
	got := listeningEndpoints(conns)
	assert.Equal(t, []string{"tcp:*:9000", "tcp:[fe80::1]:443", "udp:[::1]:53"}, got)
}
