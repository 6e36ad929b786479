package notification

import (
	"bytes"
	"fmt"
	"strconv"
)

// ParseID はメッセージ本文から識別子を取り出す
// 本文は数値そのもの（42）か、JSON 文字列（"42"）のどちらでもよい
func ParseID(body []byte) (int64, error) {
	raw := bytes.TrimSpace(body)
	raw = bytes.Trim(raw, `"`)
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPayload, body)
	}
	return id, nil
}
