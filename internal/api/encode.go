package api

import (
	"encoding/json"
	"net/http"
	"net/netip"
)

// EncodeText：纯文本编码，响应体仅为地址本身，无换行。
func EncodeText(ip netip.Addr) Response {
	return Response{
		Status:      http.StatusOK,
		ContentType: contentTypeText,
		Body:        []byte(ip.String()),
	}
}

// 文档注释：JSON 编码
// 约束：状态码固定为 200。旧版本此处返回 201 Created，对只读查询没有意义，视为缺陷不予保留。
func EncodeJSON(ip netip.Addr) Response {
	b, err := json.Marshal(ipPayload{IP: ip})
	if err != nil {
		// netip.Addr 的 MarshalText 不返回错误
		return Response{Status: http.StatusInternalServerError}
	}
	return Response{
		Status:      http.StatusOK,
		ContentType: contentTypeJSON,
		Body:        b,
	}
}

// write：写出编码结果；只读查询的结果因调用方而异，禁止缓存
func (res Response) write(w http.ResponseWriter) {
	if res.ContentType != "" {
		w.Header().Set("content-type", res.ContentType)
	}
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}
