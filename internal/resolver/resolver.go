// 包 resolver：决定一次请求应当回报给调用方的 IP 地址
package resolver

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

const (
	NameLoopback = "loopback"
	NamePeer     = "peer"
)

// ErrUnknownPolicy 表示配置中的策略名无法识别，属于启动期错误。
var ErrUnknownPolicy = errors.New("unknown resolve policy")

// 文档注释：地址解析策略
// 背景：服务历史上存在两种行为（固定回环地址 / 真实对端地址），以具名策略显式区分，启动时选定。
// 约束：Resolve 必须是纯函数，只读取入参，不做 I/O，不保存状态；不会失败。
// headers 当前不被任何策略读取，保留该参数是为了将来接入受信反向代理头时不改变调用约定；
// 目前没有任何头部被信任或解析。
type Policy interface {
	Name() string
	Resolve(headers http.Header, peer netip.AddrPort) netip.Addr
}

var loopbackAddr = netip.AddrFrom4([4]byte{127, 0, 0, 1})

// Loopback 对任何请求都回报 127.0.0.1，忽略头部与对端地址。仅用于演示与占位。
type Loopback struct{}

func (Loopback) Name() string { return NameLoopback }

func (Loopback) Resolve(http.Header, netip.AddrPort) netip.Addr { return loopbackAddr }

// Peer 回报 TCP 连接对端的真实 IP，忽略头部。
type Peer struct{}

func (Peer) Name() string { return NamePeer }

func (Peer) Resolve(_ http.Header, peer netip.AddrPort) netip.Addr { return peer.Addr() }

// Default 返回默认策略（Peer），它是唯一能反映真实客户端地址的策略。
func Default() Policy { return Peer{} }

// Parse：按名称选择策略
// 约束：大小写不敏感，忽略首尾空白；空字符串回退到默认策略；未知名称返回 ErrUnknownPolicy。
func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Default(), nil
	case NamePeer:
		return Peer{}, nil
	case NameLoopback:
		return Loopback{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownPolicy, name, NamePeer, NameLoopback)
}
