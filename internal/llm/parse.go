package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// StripCodeFence 去掉模型回复外层的 Markdown 代码块标记
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseLayoutReply 解析布局分类回复
//
// 回复应为 {"index_1": 1, "index_2": 3, ...}。整体解析失败时返回
// 全部未知的结果；缺失或无法转成整数的条目归为未知布局
func ParseLayoutReply(raw string, count int) []model.LayoutKind {
	kinds := make([]model.LayoutKind, count)
	for i := range kinds {
		kinds[i] = model.LayoutUnknown
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &parsed); err != nil {
		return kinds
	}

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("index_%d", i+1)
		v, ok := parsed[key]
		if !ok {
			continue
		}
		n, ok := coerceInt(v)
		if !ok {
			continue
		}
		kinds[i] = model.ParseLayoutKind(n)
	}
	return kinds
}

func coerceInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseHeaderIndex 解析表头行检测回复
// 模型返回的索引超出实际读取的行数或为负数时视为错误，不再向下游传播
func ParseHeaderIndex(raw string, rowCount int) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(StripCodeFence(raw)))
	if err != nil {
		return 0, fmt.Errorf("表头索引不是整数: %q", raw)
	}
	if idx < 0 || idx >= rowCount {
		return 0, fmt.Errorf("表头索引 %d 超出范围 [0, %d)", idx, rowCount)
	}
	return idx, nil
}

// ParseFeeDetails 解析费用明细提取回复
//
// 顶层键 "费用明细" 存在时取其数组；顶层本身是数组时直接使用；
// 否则把整个对象包装为单条记录
func ParseFeeDetails(raw string) ([]model.FeeRecord, error) {
	cleaned := StripCodeFence(raw)

	var details model.FeeDetails
	if err := json.Unmarshal([]byte(cleaned), &details); err == nil && details.Records != nil {
		return details.Records, nil
	}

	var list []model.FeeRecord
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list, nil
	}

	var single model.FeeRecord
	if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
		return nil, fmt.Errorf("无法解析费用明细 JSON: %w", err)
	}
	return []model.FeeRecord{single}, nil
}
