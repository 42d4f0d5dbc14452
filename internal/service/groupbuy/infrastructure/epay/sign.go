// internal/service/groupbuy/infrastructure/epay/sign.go
package epay

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign 对参数集计算网关签名。
// 规则：剔除 sign/sign_type 和空值参数，按 key 字节序升序排序，
// 以 k=v 形式用 & 连接，末尾直接拼接商户密钥（无分隔符），
// 对 UTF-8 字节做 MD5，输出小写十六进制。
// 发起支付和校验回调使用同一套规则，这是与网关互通的前提。
func Sign(params map[string]string, merchantKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString(merchantKey)

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Verify 用同一规则重算签名并与对方给出的 sign 字段比较。
// 网关契约只要求字符串相等，这里用常数时间比较作为额外防护。
func Verify(params map[string]string, merchantKey string) bool {
	received, ok := params["sign"]
	if !ok || received == "" {
		return false
	}
	calculated := Sign(params, merchantKey)
	return subtle.ConstantTimeCompare([]byte(received), []byte(calculated)) == 1
}
