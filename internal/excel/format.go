package excel

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// thinBorders 四边细实线边框
var thinBorders = []excelize.Border{
	{Type: "left", Style: 1, Color: "000000"},
	{Type: "right", Style: 1, Color: "000000"},
	{Type: "top", Style: 1, Color: "000000"},
	{Type: "bottom", Style: 1, Color: "000000"},
}

// FormatWorkbook 为工作簿的所有工作表添加细边框并按内容自适应列宽
// withBorders 为 false 时只调整列宽
func FormatWorkbook(path string, withBorders bool) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	for _, sheetName := range f.GetSheetList() {
		if err := formatSheet(f, sheetName, withBorders); err != nil {
			return fmt.Errorf("格式化工作表 %s 失败: %w", sheetName, err)
		}
	}
	return f.Save()
}

func formatSheet(f *excelize.File, sheetName string, withBorders bool) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return nil
	}

	if withBorders {
		styleID, err := f.NewStyle(&excelize.Style{Border: thinBorders})
		if err != nil {
			return err
		}
		topLeft, err := excelize.CoordinatesToCellName(1, 1)
		if err != nil {
			return err
		}
		bottomRight, err := excelize.CoordinatesToCellName(maxCols, len(rows))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, topLeft, bottomRight, styleID); err != nil {
			return err
		}
	}

	// 列宽取该列最长内容，(长度+2)*1.2
	for col := 0; col < maxCols; col++ {
		maxLen := 0
		for _, row := range rows {
			if col < len(row) {
				if n := utf8.RuneCountInString(row[col]); n > maxLen {
					maxLen = n
				}
			}
		}
		letter, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			continue
		}
		width := float64(maxLen+2) * 1.2
		if err := f.SetColWidth(sheetName, letter, letter, width); err != nil {
			return err
		}
	}
	return nil
}

// FormatDirectory 格式化目录下所有 xlsx 文件，单个文件失败不中断
func FormatDirectory(dir string, withBorders bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := FormatWorkbook(path, withBorders); err != nil {
			log.Printf("格式化文件失败: %s, %v", path, err)
		}
	}
	return nil
}
