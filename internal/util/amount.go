package util

import (
	"fmt"
	"strconv"
	"strings"
)

// CleanAmount 去掉金额字符串中的货币符号、千分位和空白
func CleanAmount(s string) string {
	replacer := strings.NewReplacer("¥", "", "￥", "", "$", "", ",", "", " ", "")
	return strings.TrimSpace(replacer.Replace(s))
}

// ParseAmount 解析金额字符串为数值
// 空串和 "-" 视为 0
func ParseAmount(s string) (float64, error) {
	cleaned := CleanAmount(s)
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析金额 %q: %w", s, err)
	}
	return v, nil
}

// NormalizeAmount 将金额规范为两位小数的数字字符串
func NormalizeAmount(s string) (string, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f", v), nil
}
