package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/zhang-zilu123/cost-ident/internal/excel"
	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// fakeEngine 返回预设回复的模型引擎
type fakeEngine struct {
	layoutReply    string
	headerReply    string
	transcribeN    int
	extractReplies []string
	extractN       int
}

func (f *fakeEngine) DetectLayout(ctx context.Context, imagePaths []string) (string, error) {
	return f.layoutReply, nil
}

func (f *fakeEngine) DetectHeaderRow(ctx context.Context, rows [][]string) (string, error) {
	return f.headerReply, nil
}

func (f *fakeEngine) TranscribeTable(ctx context.Context, imagePaths []string) (string, error) {
	f.transcribeN++
	return "| 费用名称 | 金额 |\n| 海运费 | 100.00 |", nil
}

func (f *fakeEngine) ExtractRecords(ctx context.Context, markdown string) (string, error) {
	reply := `{"费用明细": [{"费用名称": "海运费", "货币代码": "USD", "金额": "100.00"}]}`
	if f.extractN < len(f.extractReplies) {
		reply = f.extractReplies[f.extractN]
	}
	f.extractN++
	return reply, nil
}

func (f *fakeEngine) CorrectTable(ctx context.Context, prompt, imagePath string) (string, error) {
	return "<table><tr><td>1</td></tr></table>", nil
}

// fakeRenderer 只生成占位图片文件
type fakeRenderer struct{}

func (fakeRenderer) RenderWorkbook(xlsxPath, pngPath string) error {
	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(pngPath, []byte("png"), 0644)
}

func (fakeRenderer) RenderDirectory(xlsxDir, imageDir string) ([]string, error) {
	entries, err := os.ReadDir(xlsxDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		dst := filepath.Join(imageDir, strings.TrimSuffix(e.Name(), ".xlsx")+".png")
		if err := (fakeRenderer{}).RenderWorkbook(filepath.Join(xlsxDir, e.Name()), dst); err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, nil
}

// fakeConverter 测试中不应被调用
type fakeConverter struct{}

func (fakeConverter) ToXLSX(ctx context.Context, inputPath, outputPath string) error {
	return fmt.Errorf("测试不应触发格式转换")
}

func (fakeConverter) ToPDF(ctx context.Context, inputPath, outputPath string) error {
	return fmt.Errorf("测试不应触发格式转换")
}

func TestRouteSheets(t *testing.T) {
	sheets := []model.SheetInfo{
		{SheetName: "a", Layout: model.LayoutMasterDetail},
		{SheetName: "b", Layout: model.LayoutFlat},
		{SheetName: "c", Layout: model.LayoutBlock},
		{SheetName: "d", Layout: model.LayoutFlat},
		{SheetName: "e", Layout: model.LayoutUnknown},
	}
	ordered := RouteSheets(sheets)

	var names []string
	for _, s := range ordered {
		names = append(names, s.SheetName)
	}
	want := []string{"b", "d", "c", "e", "a"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("处理顺序错误: %v, 期望 %v", names, want)
		}
	}
}

// writeFlatWorkbook 生成 3 行表头区加 dataRows 行数据的平铺表
func writeFlatWorkbook(t *testing.T, path string, dataRows int) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	header := [][]interface{}{
		{"某公司费用清单"},
		{"", ""},
		{"费用名称", "金额"},
	}
	for i, row := range header {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("写入表头失败: %v", err)
		}
	}
	for i := 0; i < dataRows; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+4)
		row := []interface{}{fmt.Sprintf("费用%d", i+1), "100.00"}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("写入数据失败: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("保存测试工作簿失败: %v", err)
	}
}

func TestProcessFilesFlatEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "invoice.xlsx")
	writeFlatWorkbook(t, src, 23)

	engine := &fakeEngine{
		layoutReply: `{"index_1": 1}`,
		headerReply: "2",
	}
	preparer := excel.NewPreparer(fakeConverter{}, fakeRenderer{})
	o := NewOrchestrator(preparer, engine, fakeRenderer{})

	result, err := o.ProcessFiles(context.Background(), []string{src}, dir)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}

	// 23 行数据按 5 行一片拆成 5 片，每片提取 1 条记录
	if len(result.ExcelData) != 5 {
		t.Fatalf("期望 5 条记录, 实际 %d", len(result.ExcelData))
	}
	for _, r := range result.ExcelData {
		if r.SourceFile != "invoice.xlsx" {
			t.Fatalf("记录缺少来源标记: %+v", r)
		}
	}
	// 记录里的源文件名通过映射能还原出原始输入的完整路径
	if result.FileMapping["invoice"] != src {
		t.Fatalf("文件映射应指向原始输入路径: %v", result.FileMapping)
	}

	// 产物清单收集拆分表和渲染图，每个工作表各一份
	if len(result.Files) != 2 {
		t.Fatalf("期望 2 个产物文件, 实际 %v", result.Files)
	}
	var sheetN, imageN int
	for _, f := range result.Files {
		switch filepath.Ext(f) {
		case ".xlsx":
			sheetN++
		case ".png":
			imageN++
		}
	}
	if sheetN != 1 || imageN != 1 {
		t.Fatalf("产物清单缺少拆分表或图片: %v", result.Files)
	}
}

func TestNewOrchestratorIndependentProgress(t *testing.T) {
	preparer := excel.NewPreparer(fakeConverter{}, fakeRenderer{})
	a := NewOrchestrator(preparer, &fakeEngine{}, fakeRenderer{})
	b := NewOrchestrator(preparer, &fakeEngine{}, fakeRenderer{})
	if a.Progress() == b.Progress() {
		t.Fatal("两个编排器不应共享进度通道")
	}
}

func TestProcessFilesMalformedClassifyReply(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "invoice.xlsx")
	writeFlatWorkbook(t, src, 4)

	// 分类回复不是合法 JSON 时全部按未知版式走整表路径
	engine := &fakeEngine{layoutReply: "模型返回了一段散文"}
	preparer := excel.NewPreparer(fakeConverter{}, fakeRenderer{})
	o := NewOrchestrator(preparer, engine, fakeRenderer{})

	result, err := o.ProcessFiles(context.Background(), []string{src}, dir)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if len(result.ExcelData) != 1 {
		t.Fatalf("整表路径应提取 1 条记录, 实际 %d", len(result.ExcelData))
	}
	if engine.transcribeN != 1 {
		t.Fatalf("整表路径应只调用一次转写, 实际 %d", engine.transcribeN)
	}
}

func TestSortFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}
		return p
	}
	xlsx := mustWrite("费用表.xlsx")
	pdf := mustWrite("发票.PDF")
	img := mustWrite("截图.png")
	other := mustWrite("说明.txt")

	in := NewIntake(fakeConverter{})
	result, err := in.SortFiles(context.Background(), []string{xlsx, pdf, img, other}, filepath.Join(dir, "converted"))
	if err != nil {
		t.Fatalf("分拣失败: %v", err)
	}
	if len(result.ExcelFiles) != 1 || len(result.PDFFiles) != 1 || len(result.ImageFiles) != 1 {
		t.Fatalf("分拣结果错误: %+v", result)
	}
	// 大写扩展名应已改小写
	if filepath.Ext(result.PDFFiles[0]) != ".pdf" {
		t.Fatalf("扩展名未归一: %s", result.PDFFiles[0])
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "说明.txt" {
		t.Fatalf("不支持的格式应被跳过: %v", result.Skipped)
	}
}
