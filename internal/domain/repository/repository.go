// Package repository 定义数据访问层接口
package repository

// ClampLimit 规范化列表数量
func ClampLimit(limit, def, max int) int {
	if limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
