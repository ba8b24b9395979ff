// Package exporter 把复核后的费用记录导出为 Excel 下载文件
package exporter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// 导出列定义，与复核页面展示的字段一致
var exportColumns = []struct {
	Title string
	Width float64
}{
	{"外销合同", 18},
	{"船代公司", 22},
	{"费用名称", 18},
	{"货币代码", 10},
	{"金额", 14},
	{"备注", 24},
	{"源文件", 26},
}

// Export 生成费用记录的 Excel 工作簿
// 带表头样式和合计行，金额列为数值类型便于在 Excel 中继续汇总
func Export(records []model.FeeRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "费用明细"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 1, Color: "000000"},
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, col := range exportColumns {
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		cell := letter + "1"
		if err := f.SetCellValue(sheet, cell, col.Title); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetColWidth(sheet, letter, letter, col.Width); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	var total float64
	for i, r := range records {
		rowNum := i + 2
		amount, err := strconv.ParseFloat(r.Amount, 64)
		if err != nil {
			// 无法解析的金额按文本写入，不计入合计
			amount = 0
			if e := f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), r.Amount); e != nil {
				_ = f.Close()
				return nil, e
			}
		} else {
			total += amount
			if e := f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), amount); e != nil {
				_ = f.Close()
				return nil, e
			}
		}

		values := map[string]interface{}{
			"A": r.Contract,
			"B": r.Forwarder,
			"C": r.FeeName,
			"D": r.Currency,
			"F": r.Note,
			"G": r.SourceFile,
		}
		for col, v := range values {
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, rowNum), v); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	// 合计行
	sumRow := len(records) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", sumRow), "合计"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("E%d", sumRow), total); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}
