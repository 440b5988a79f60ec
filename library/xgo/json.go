package xgo

import "encoding/json"

// ToJSON 仅用于日志输出
func ToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
