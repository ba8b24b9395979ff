package excel

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SplitSheets 把一个工作簿拆分为每个工作表一个独立文件
// 保留列宽和行高，单元格以值复制。返回拆分出的文件路径
func SplitSheets(inputPath, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	src, err := excelize.OpenFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer src.Close()

	var outputs []string
	for _, sheetName := range src.GetSheetList() {
		outPath := filepath.Join(outputDir, sheetName+".xlsx")
		if err := copySheetToFile(src, sheetName, outPath); err != nil {
			// 单个工作表拆分失败不影响其余工作表
			log.Printf("拆分工作表 %q 失败: %v", sheetName, err)
			continue
		}
		outputs = append(outputs, outPath)
	}
	return outputs, nil
}

// copySheetToFile 把一个工作表复制成单独的工作簿文件
func copySheetToFile(src *excelize.File, sheetName, outPath string) error {
	rows, err := src.GetRows(sheetName)
	if err != nil {
		return err
	}

	dst := excelize.NewFile()
	defer dst.Close()
	if err := dst.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	maxCols := 0
	for i, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := dst.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	// 复制列宽
	for col := 1; col <= maxCols; col++ {
		letter, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if width, err := src.GetColWidth(sheetName, letter); err == nil {
			_ = dst.SetColWidth(sheetName, letter, letter, width)
		}
	}

	// 复制行高
	for i := 1; i <= len(rows); i++ {
		if height, err := src.GetRowHeight(sheetName, i); err == nil {
			_ = dst.SetRowHeight(sheetName, i, height)
		}
	}

	return dst.SaveAs(outPath)
}

// IsEmptyFile 判断单 sheet 工作簿是否没有任何非空单元格
// 读取失败时按非空处理，让后续流程继续
func IsEmptyFile(path string) bool {
	f, err := excelize.OpenFile(path)
	if err != nil {
		log.Printf("检查 Excel 是否为空时出错: %s, %v", path, err)
		return false
	}
	defer f.Close()

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return false
		}
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					return false
				}
			}
		}
	}
	return true
}
