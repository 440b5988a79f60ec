package xgo

import (
	"strconv"
	"strings"
)

func StrToInt32(s string) int32 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int32(v)
}

func StrToInt64(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

func StrToFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func Int32ToStr(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func Float64ToStr(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// JoinInt32 以 sep 拼接整数切片, 空切片返回 ""
func JoinInt32(vs []int32, sep string) string {
	if len(vs) == 0 {
		return ""
	}
	ss := make([]string, len(vs))
	for i, v := range vs {
		ss[i] = Int32ToStr(v)
	}
	return strings.Join(ss, sep)
}

// SplitInt32 JoinInt32 的逆操作, 非法片段返回错误
func SplitInt32(s, sep string) ([]int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, sep)
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, int32(v))
	}
	return out, nil
}
