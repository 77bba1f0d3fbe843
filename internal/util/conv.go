package util

import (
	"strconv"
	"strings"
)

// PositiveIntOr 解析正整数，缺失、非数字或 <= 0 时返回 def
func PositiveIntOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ParseOptionalBool 只接受 "true"/"false"，其余视为未设置
func ParseOptionalBool(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}
