package host

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"

	"deskshell/internal/core"
)

// SystemInfo - снимок окружения процесса.
type SystemInfo struct {
	OS      string `json:"os"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

// Module предоставляет сведения об узле.
type Module struct {
	env     Environment
	version string
}

// New создает модуль. version - значение поля version в SystemInfo.
func New(env Environment, version string) *Module {
	if env == nil {
		env = RuntimeEnvironment()
	}
	return &Module{env: env, version: version}
}

func (m *Module) Name() string { return "host" }

func (m *Module) Init(ctx context.Context) error { //nolint:revive // инициализация пока тривиальна
	return nil
}

func (m *Module) Commands() []core.Command {
	return []core.Command{
		{Name: "get_system_info", Handler: m.systemInfo},
		{Name: "get_host_status", Handler: m.status},
		{Name: "get_system_ports", Handler: m.ports},
	}
}

func (m *Module) systemInfo(ctx context.Context, args core.Args) (interface{}, error) {
	return SystemInfo{OS: m.env.OS(), Version: m.version, Arch: m.env.Arch()}, nil
}

func (m *Module) status(ctx context.Context, args core.Args) (interface{}, error) {
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, core.IOFailure("host info", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, core.IOFailure("memory info", err)
	}
	resp := map[string]interface{}{
		"hostname":     hInfo.Hostname,
		"platform":     hInfo.Platform,
		"platformVer":  hInfo.PlatformVersion,
		"kernel":       hInfo.KernelVersion,
		"kernelArch":   hInfo.KernelArch,
		"uptime_sec":   hInfo.Uptime,
		"boot_time":    time.Unix(int64(hInfo.BootTime), 0).UTC().Format(time.RFC3339),
		"mem_total":    vm.Total,
		"mem_used":     vm.Used,
		"mem_used_pct": vm.UsedPercent,
	}
	// load average есть не на всех платформах
	if ld, err := load.AvgWithContext(ctx); err == nil {
		resp["load1"] = ld.Load1
		resp["load5"] = ld.Load5
		resp["load15"] = ld.Load15
	}
	return resp, nil
}

// ports возвращает слушающие сокеты в виде "proto:addr:port".
func (m *Module) ports(ctx context.Context, args core.Args) (interface{}, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, core.IOFailure("list connections", err)
	}
	return listeningEndpoints(conns), nil
}

func listeningEndpoints(conns []psnet.ConnectionStat) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range conns {
		if c.Laddr.Port == 0 {
			continue
		}
		var proto string
		switch {
		case c.Type == 1 && c.Status == "LISTEN": // SOCK_STREAM
			proto = "tcp"
		case c.Type == 2 && c.Raddr.Port == 0: // SOCK_DGRAM без удаленной стороны
			proto = "udp"
		default:
			continue
		}
		ip := c.Laddr.IP
		if ip == "" {
			ip = "*"
		}
		ep := fmt.Sprintf("%s:%s", proto, net.JoinHostPort(ip, strconv.FormatUint(uint64(c.Laddr.Port), 10)))
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}
