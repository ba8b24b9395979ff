package corrector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	tablePattern    = regexp.MustCompile(`(?is)<table[^>]*>.*?</table>`)
	rowClosePattern = regexp.MustCompile(`(?i)</tr>`)
	amountPattern   = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*(?:\.\d{1,4})?\b`)
	sumLabels       = []string{"合计", "LUMP SUM", "总计", "Total"}
)

// ExtractTables 从 Markdown 文本中提取所有 HTML 表格
func ExtractTables(markdown string) []string {
	return tablePattern.FindAllString(markdown, -1)
}

// ReplaceTables 把 Markdown 中的表格按原顺序替换为修正后的版本
// corrected 长度不足时剩余表格保持原样
func ReplaceTables(markdown string, corrected []string) string {
	idx := 0
	return tablePattern.ReplaceAllStringFunc(markdown, func(orig string) string {
		if idx < len(corrected) && corrected[idx] != "" {
			out := corrected[idx]
			idx++
			return out
		}
		idx++
		return orig
	})
}

// parseAmounts 提取文本中所有金额，过滤明显不是费用的数值
func parseAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountPattern.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		if v < 0.01 || v > 1000000 {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}

// tableRows 把 HTML 表格按 </tr> 拆成行，行内标签替换为空格
// 同一行的多个单元格保持在一条文本里，合计标签和金额不会被拆散
func tableRows(table string) []string {
	const rowSep = "\x00"
	s := rowClosePattern.ReplaceAllString(table, rowSep)
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	var rows []string
	for _, row := range strings.Split(s, rowSep) {
		row = strings.TrimSpace(row)
		if row != "" {
			rows = append(rows, row)
		}
	}
	return rows
}

// isSumLine 判断一行文本是否带合计标签
func isSumLine(line string) bool {
	lower := strings.ToLower(line)
	for _, label := range sumLabels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return true
		}
	}
	return false
}

// sumFromLine 从带合计标签的行里取最大金额作为声明值
func sumFromLine(line string) *float64 {
	if !isSumLine(line) {
		return nil
	}
	amounts := parseAmounts(line)
	if len(amounts) == 0 {
		return nil
	}
	sort.Float64s(amounts)
	v := amounts[len(amounts)-1]
	return &v
}

// findExpectedSum 在整份文档里寻找合计行声明的汇总金额
// 先扫所有表格的行，再扫表格之外的纯文本行，都没有返回 nil
func findExpectedSum(markdown string) *float64 {
	for _, table := range ExtractTables(markdown) {
		for _, row := range tableRows(table) {
			if v := sumFromLine(row); v != nil {
				return v
			}
		}
	}
	plain := tablePattern.ReplaceAllString(markdown, "\n")
	for _, line := range strings.Split(plain, "\n") {
		if v := sumFromLine(line); v != nil {
			return v
		}
	}
	return nil
}

// tableBlock 中间 JSON 里一个带 HTML 的表格块及其切图路径
type tableBlock struct {
	HTML      string
	ImagePath string
}

// loadMiddleBlocks 从 OCR 中间 JSON 加载所有表格块
// 遍历 pdf_info 下的 preproc_blocks 和 para_blocks，深度搜索 html 和 image_path 字段
func loadMiddleBlocks(middleJSONPath string) ([]tableBlock, error) {
	data, err := os.ReadFile(middleJSONPath)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var blocks []tableBlock
	pages, _ := doc["pdf_info"].([]interface{})
	for _, p := range pages {
		page, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		for _, key := range []string{"preproc_blocks", "para_blocks"} {
			items, _ := page[key].([]interface{})
			for _, item := range items {
				html, imagePath := deepFindTable(item)
				if html != "" {
					blocks = append(blocks, tableBlock{HTML: html, ImagePath: imagePath})
				}
			}
		}
	}
	return blocks, nil
}

// deepFindTable 在嵌套结构中找出 html 与 image_path 字段
func deepFindTable(node interface{}) (html, imagePath string) {
	switch v := node.(type) {
	case map[string]interface{}:
		if s, ok := v["html"].(string); ok && html == "" {
			html = s
		}
		if s, ok := v["image_path"].(string); ok && imagePath == "" {
			imagePath = s
		}
		for _, child := range v {
			h, p := deepFindTable(child)
			if html == "" {
				html = h
			}
			if imagePath == "" {
				imagePath = p
			}
		}
	case []interface{}:
		for _, child := range v {
			h, p := deepFindTable(child)
			if html == "" {
				html = h
			}
			if imagePath == "" {
				imagePath = p
			}
		}
	}
	return html, imagePath
}

// bindTableImage 把一个表格绑定到它的原始切图
// 先按归一化相似度 >= 0.9 匹配中间 JSON 里的表格块，匹配不上退回目录里的第一张图
func bindTableImage(table string, blocks []tableBlock, imageDir string) string {
	normalized := normalizeTableText(table)
	best := ""
	bestRatio := 0.0
	for _, b := range blocks {
		if b.ImagePath == "" {
			continue
		}
		r := similarityRatio(normalized, normalizeTableText(b.HTML))
		if r > bestRatio {
			bestRatio = r
			best = b.ImagePath
		}
	}
	if bestRatio >= 0.9 && best != "" {
		if !filepath.IsAbs(best) {
			best = filepath.Join(imageDir, filepath.Base(best))
		}
		if _, err := os.Stat(best); err == nil {
			return best
		}
	}
	return firstImage(imageDir)
}

func firstImage(imageDir string) string {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(imageDir, names[0])
}
