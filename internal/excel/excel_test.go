package excel

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeTestWorkbook 生成一个包含 rows 行、cols 列数据的测试工作簿
func writeTestWorkbook(t *testing.T, path string, rows, cols int) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r := 1; r <= rows; r++ {
		values := make([]interface{}, cols)
		for c := 0; c < cols; c++ {
			values[c] = fmt.Sprintf("r%dc%d", r, c+1)
		}
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			t.Fatalf("单元格转换失败: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("写入行失败: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("保存测试工作簿失败: %v", err)
	}
}

func TestChunkRows(t *testing.T) {
	cases := []struct {
		rowCount int
		lo, hi   int
	}{
		{100, 40, 40},
		{300, 40, 70},
		{1000, 40, 80},
		{20, 20, 20},
		{150, 40, 40},
	}
	for _, c := range cases {
		got := ChunkRows(c.rowCount)
		if got < c.lo || got > c.hi {
			t.Fatalf("ChunkRows(%d) = %d, 期望在 [%d, %d] 内", c.rowCount, got, c.lo, c.hi)
		}
	}
}

func TestSplitByRowsWithHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "flat.xlsx")
	// 3 行表头区（索引 0..2）加 23 行数据
	writeTestWorkbook(t, src, 26, 4)

	chunks, err := SplitByRowsWithHeader(src, filepath.Join(dir, "out"), 2)
	if err != nil {
		t.Fatalf("拆分失败: %v", err)
	}
	if len(chunks) != 5 {
		t.Fatalf("期望 5 个分片, 实际 %d", len(chunks))
	}
	if chunks[0].StartRow != 1 || chunks[0].EndRow != 5 {
		t.Fatalf("第一个分片范围错误: %d-%d", chunks[0].StartRow, chunks[0].EndRow)
	}
	if chunks[4].StartRow != 21 || chunks[4].EndRow != 23 {
		t.Fatalf("最后一个分片范围错误: %d-%d", chunks[4].StartRow, chunks[4].EndRow)
	}

	// 每个分片应包含表头区加对应数据行
	f, err := excelize.OpenFile(chunks[0].FilePath)
	if err != nil {
		t.Fatalf("打开分片失败: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("读取分片失败: %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("分片行数错误: 期望 8（3 表头 + 5 数据）, 实际 %d", len(rows))
	}
	if rows[0][0] != "r1c1" || rows[3][0] != "r4c1" {
		t.Fatalf("分片内容错误: %v", rows[0])
	}
}

func TestSplitByRowsWithHeaderIndexOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "flat.xlsx")
	writeTestWorkbook(t, src, 5, 2)

	if _, err := SplitByRowsWithHeader(src, filepath.Join(dir, "out"), 10); err == nil {
		t.Fatal("表头索引越界应返回错误")
	}
}

func TestSplitByRows(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "md.xlsx")
	writeTestWorkbook(t, src, 100, 3)

	chunks, err := SplitByRows(src, filepath.Join(dir, "out"), ChunkRows(100))
	if err != nil {
		t.Fatalf("拆分失败: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("期望 3 个分片, 实际 %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartRow <= chunks[i-1].StartRow {
			t.Fatalf("分片未按起始行排序: %v", chunks)
		}
	}
	if chunks[2].EndRow != 100 {
		t.Fatalf("最后一个分片结束行错误: %d", chunks[2].EndRow)
	}
}

func TestSplitSheetsAndIsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "multi.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "数据一"); err != nil {
		t.Fatalf("重命名工作表失败: %v", err)
	}
	if err := f.SetCellValue("数据一", "A1", "费用名称"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if _, err := f.NewSheet("数据二"); err != nil {
		t.Fatalf("新建工作表失败: %v", err)
	}
	if err := f.SetCellValue("数据二", "B2", "金额"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if _, err := f.NewSheet("空表"); err != nil {
		t.Fatalf("新建工作表失败: %v", err)
	}
	if err := f.SaveAs(src); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	f.Close()

	outputs, err := SplitSheets(src, filepath.Join(dir, "sheets"))
	if err != nil {
		t.Fatalf("拆分失败: %v", err)
	}
	if len(outputs) != 3 {
		t.Fatalf("期望拆出 3 个文件, 实际 %d", len(outputs))
	}

	empties := 0
	for _, p := range outputs {
		if IsEmptyFile(p) {
			empties++
		}
	}
	if empties != 1 {
		t.Fatalf("期望识别出 1 个空工作表文件, 实际 %d", empties)
	}
}

func TestReadFirstRows(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.xlsx")
	writeTestWorkbook(t, src, 30, 2)

	rows, err := ReadFirstRows(src, 20)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(rows) != 20 {
		t.Fatalf("期望 20 行, 实际 %d", len(rows))
	}
}

func TestFormatWorkbook(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fmt.xlsx")
	writeTestWorkbook(t, src, 5, 3)

	if err := FormatWorkbook(src, true); err != nil {
		t.Fatalf("格式化失败: %v", err)
	}

	f, err := excelize.OpenFile(src)
	if err != nil {
		t.Fatalf("打开失败: %v", err)
	}
	defer f.Close()
	width, err := f.GetColWidth("Sheet1", "A")
	if err != nil {
		t.Fatalf("读取列宽失败: %v", err)
	}
	// 最长内容 "r1c1" 4 字符, (4+2)*1.2 = 7.2
	if width < 7.1 || width > 7.3 {
		t.Fatalf("列宽错误: %v", width)
	}
}
