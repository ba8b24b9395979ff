package util

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stem 返回文件名去掉扩展名的部分
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsASCII 判断字符串是否仅包含 ASCII 字符
func IsASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// SafeBaseName 生成 ASCII 安全的文件名
//
// 下游的表格渲染和 OCR 工具不接受非 ASCII 路径。纯 ASCII 的文件名
// 原样返回；含中文等字符时改用毫秒时间戳加 UUID 前 8 位的唯一名称
func SafeBaseName(name string) string {
	if IsASCII(name) {
		return name
	}
	timestamp := time.Now().UnixMilli()
	uniqueID := uuid.New().String()[:8]
	return fmt.Sprintf("excel_%d_%s", timestamp, uniqueID)
}

// FilenameList 提取一组路径的文件名
func FilenameList(paths []string) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		names = append(names, filepath.Base(p))
	}
	return names
}
