package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// RowCount 返回第一个工作表的总行数
func RowCount(path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("工作簿没有工作表: %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ChunkRows 根据总行数决定主从表每个分片的行数
// 小表整体输出，中表按 6 份切，大表按约 70 行一份切
func ChunkRows(rowCount int) int {
	switch {
	case rowCount <= 150:
		if rowCount < 40 {
			return rowCount
		}
		return 40
	case rowCount <= 400:
		return clamp(rowCount/6, 40, 70)
	default:
		parts := rowCount / 70
		if parts < 1 {
			parts = 1
		}
		return clamp(rowCount/parts, 40, 80)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SplitByRows 把工作表按固定行数切分成多个文件，不附加表头
// 返回的分片按起始行号升序排列
func SplitByRows(inputPath, outputDir string, chunkSize int) ([]model.RowChunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("分片行数非法: %d", chunkSize)
	}
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

	var chunks []model.RowChunk
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		name := fmt.Sprintf("rows_%d_to_%d.xlsx", start+1, end)
		outPath := filepath.Join(outputDir, name)
		if err := writeChunk(f, sheetName, nil, rows[start:end], outPath); err != nil {
			return nil, fmt.Errorf("写入分片 %s 失败: %w", name, err)
		}
		chunks = append(chunks, model.RowChunk{
			FilePath: outPath,
			StartRow: start + 1,
			EndRow:   end,
		})
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartRow < chunks[j].StartRow })
	return chunks, nil
}
