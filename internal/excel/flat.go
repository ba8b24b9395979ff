package excel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// rowsPerChunk 平铺表每个分片的数据行数
const rowsPerChunk = 5

// ReadFirstRows 读取第一个工作表的前 limit 行，供表头识别使用
func ReadFirstRows(path string, limit int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("工作簿没有工作表: %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// SplitByRowsWithHeader 根据表头行索引把平铺表拆成小文件
// 每个文件包含表头区（0..headerIndex 行）加最多 rowsPerChunk 行数据
// headerIndex 为 0 基行号，文件名形如 rows_N_to_M.xlsx（1 基数据行号）
func SplitByRowsWithHeader(inputPath, outputDir string, headerIndex int) ([]model.RowChunk, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("工作簿没有工作表: %s", inputPath)
	}
	sheetName := sheets[0]
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	if headerIndex < 0 || headerIndex >= len(rows) {
		return nil, fmt.Errorf("表头行索引越界: %d, 总行数 %d", headerIndex, len(rows))
	}

	headerRows := rows[:headerIndex+1]
	dataRows := rows[headerIndex+1:]

	var chunks []model.RowChunk
	for start := 0; start < len(dataRows); start += rowsPerChunk {
		end := start + rowsPerChunk
		if end > len(dataRows) {
			end = len(dataRows)
		}
		name := fmt.Sprintf("rows_%d_to_%d.xlsx", start+1, end)
		outPath := filepath.Join(outputDir, name)
		if err := writeChunk(f, sheetName, headerRows, dataRows[start:end], outPath); err != nil {
			return nil, fmt.Errorf("写入分片 %s 失败: %w", name, err)
		}
		chunks = append(chunks, model.RowChunk{
			FilePath: outPath,
			StartRow: start + 1,
			EndRow:   end,
		})
	}
	return chunks, nil
}

// writeChunk 把表头行加一段数据行写入新工作簿，继承源文件列宽
func writeChunk(src *excelize.File, sheetName string, headerRows, dataRows [][]string, outPath string) error {
	dst := excelize.NewFile()
	defer dst.Close()

	const outSheet = "Sheet1"
	rowIdx := 1
	for _, row := range append(append([][]string{}, headerRows...), dataRows...) {
		if len(row) > 0 {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := dst.SetSheetRow(outSheet, cell, &values); err != nil {
				return err
			}
		}
		rowIdx++
	}

	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	for _, row := range dataRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	for col := 1; col <= maxCols; col++ {
		letter, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if width, err := src.GetColWidth(sheetName, letter); err == nil {
			_ = dst.SetColWidth(outSheet, letter, letter, width)
		}
	}
	return dst.SaveAs(outPath)
}
