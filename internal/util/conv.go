package util

import (
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseIntBounded 解析查询参数，非法或越界时返回默认值
func ParseIntBounded(s string, def, lo, hi int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}
