// Package upload proxies media files to Cloudinary with server-side
// request signing. Only the resulting secure URL is stored with a
// record, never the binary payload.
package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature computes the Cloudinary request signature: parameters are
// sorted by key, joined as key=value pairs with '&', and the API secret
// is appended before hashing.
func Signature(params map[string]string, apiSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
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
	sb.WriteString(apiSecret)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
