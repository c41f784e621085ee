package api

import "net/netip"

// 文档注释：/json 路由的对外返回结构
// 约束：只有一个键 ip；值为地址的规范文本形式（点分十进制或冒号十六进制）。
type ipPayload struct {
	IP netip.Addr `json:"ip"`
}

// Response：一次编码的结果（状态码、内容类型与响应体）
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json"
)
