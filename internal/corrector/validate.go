package corrector

import (
	"math"
	"regexp"
	"strings"
)

var (
	openTablePattern  = regexp.MustCompile(`(?i)<table[^>]*>`)
	closeTablePattern = regexp.MustCompile(`(?i)</table>`)
	rowPattern        = regexp.MustCompile(`(?is)<tr[^>]*>.*?</tr>`)
)

// validateHTMLTable 检查模型输出是否是恰好一个结构完整的 HTML 表格
func validateHTMLTable(s string) bool {
	s = strings.TrimSpace(s)
	if len(openTablePattern.FindAllString(s, -1)) != 1 {
		return false
	}
	if len(closeTablePattern.FindAllString(s, -1)) != 1 {
		return false
	}
	if !openTablePattern.MatchString(s) || !strings.Contains(strings.ToLower(s), "</table>") {
		return false
	}
	// 至少要有一行
	return len(rowPattern.FindAllString(s, -1)) > 0
}

// checkSumConsistency 校验表格明细金额之和与文档声明的合计金额是否一致
// 明细行里所有金额都计入，合计行跳过；expected 为 nil 时视为通过
func checkSumConsistency(table string, expected *float64) (bool, float64) {
	var detailSum float64
	for _, row := range tableRows(table) {
		if isSumLine(row) {
			continue
		}
		for _, v := range parseAmounts(row) {
			detailSum += v
		}
	}
	if expected == nil {
		return true, detailSum
	}
	return math.Abs(detailSum-*expected) <= 0.01, detailSum
}
