package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/zhang-zilu123/cost-ident/internal/excel"
	"github.com/zhang-zilu123/cost-ident/internal/excel/render"
	"github.com/zhang-zilu123/cost-ident/internal/llm"
	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// headerScanRows 表头识别时读取的行数上限
const headerScanRows = 20

// Processor 按版式处理一个工作表并返回费用记录
type Processor interface {
	Process(ctx context.Context, sheet model.SheetInfo) ([]model.FeeRecord, error)
}

// FlatProcessor 平铺表处理器
// 识别表头行后按固定行数拆分，每个分片带表头渲染成图，逐片识别提取
type FlatProcessor struct {
	Engine   llm.Engine
	Renderer render.Rasterizer
}

// Process 实现 Processor
func (p *FlatProcessor) Process(ctx context.Context, sheet model.SheetInfo) ([]model.FeeRecord, error) {
	rows, err := excel.ReadFirstRows(sheet.SheetPath, headerScanRows)
	if err != nil {
		return nil, fmt.Errorf("读取表头区失败: %w", err)
	}

	raw, err := p.Engine.DetectHeaderRow(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("表头识别失败: %w", err)
	}
	headerIndex, err := llm.ParseHeaderIndex(raw, len(rows))
	if err != nil {
		return nil, fmt.Errorf("表头行索引无效: %w", err)
	}

	chunksDir := filepath.Join(sheet.WorkDir, "chunks_"+sheet.SheetName)
	chunks, err := excel.SplitByRowsWithHeader(sheet.SheetPath, chunksDir, headerIndex)
	if err != nil {
		return nil, fmt.Errorf("按行拆分失败: %w", err)
	}
	if err := excel.FormatDirectory(chunksDir, true); err != nil {
		return nil, fmt.Errorf("分片格式化失败: %w", err)
	}

	imagesDir := filepath.Join(sheet.WorkDir, "chunk_images_"+sheet.SheetName)
	var records []model.FeeRecord
	for i := range chunks {
		imagePath := filepath.Join(imagesDir, fmt.Sprintf("rows_%d_to_%d.png", chunks[i].StartRow, chunks[i].EndRow))
		if err := p.Renderer.RenderWorkbook(chunks[i].FilePath, imagePath); err != nil {
			log.Printf("渲染分片失败: %s, %v", chunks[i].FilePath, err)
			continue
		}
		chunks[i].ImagePath = imagePath

		// 单个分片识别失败不影响其余分片
		chunkRecords, err := p.extractFromImage(ctx, imagePath)
		if err != nil {
			log.Printf("分片识别失败: %s, %v", imagePath, err)
			continue
		}
		records = append(records, chunkRecords...)
	}
	return records, nil
}

func (p *FlatProcessor) extractFromImage(ctx context.Context, imagePath string) ([]model.FeeRecord, error) {
	markdown, err := p.Engine.TranscribeTable(ctx, []string{imagePath})
	if err != nil {
		return nil, fmt.Errorf("图片转写失败: %w", err)
	}
	raw, err := p.Engine.ExtractRecords(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("记录提取失败: %w", err)
	}
	return llm.ParseFeeDetails(raw)
}

// BlockProcessor 分块表处理器，整表渲染一张图后识别提取
// 未识别出版式的工作表也走这条路径
type BlockProcessor struct {
	Engine   llm.Engine
	Renderer render.Rasterizer
}

// Process 实现 Processor
func (p *BlockProcessor) Process(ctx context.Context, sheet model.SheetInfo) ([]model.FeeRecord, error) {
	if err := excel.FormatWorkbook(sheet.SheetPath, true); err != nil {
		return nil, fmt.Errorf("工作表格式化失败: %w", err)
	}
	imagePath := filepath.Join(sheet.WorkDir, "block_"+sheet.SheetName+".png")
	if err := p.Renderer.RenderWorkbook(sheet.SheetPath, imagePath); err != nil {
		return nil, fmt.Errorf("工作表渲染失败: %w", err)
	}

	markdown, err := p.Engine.TranscribeTable(ctx, []string{imagePath})
	if err != nil {
		return nil, fmt.Errorf("图片转写失败: %w", err)
	}
	raw, err := p.Engine.ExtractRecords(ctx, markdown)
	if err != nil {
		// 该表提取不出记录不致命，错误交由上层记成警告
		return nil, fmt.Errorf("记录提取失败: %w", err)
	}
	records, err := llm.ParseFeeDetails(raw)
	if err != nil {
		return nil, fmt.Errorf("解析费用记录失败: %w", err)
	}
	return records, nil
}

// MasterDetailProcessor 主从表处理器
// 只调整列宽不加边框，按行数分层切片，所有分片图一次性交给模型生成连贯 Markdown
type MasterDetailProcessor struct {
	Engine   llm.Engine
	Renderer render.Rasterizer
}

// Process 实现 Processor
func (p *MasterDetailProcessor) Process(ctx context.Context, sheet model.SheetInfo) ([]model.FeeRecord, error) {
	if err := excel.FormatWorkbook(sheet.SheetPath, false); err != nil {
		return nil, fmt.Errorf("工作表格式化失败: %w", err)
	}

	rowCount, err := excel.RowCount(sheet.SheetPath)
	if err != nil {
		return nil, fmt.Errorf("统计行数失败: %w", err)
	}
	if rowCount == 0 {
		return []model.FeeRecord{}, nil
	}

	chunksDir := filepath.Join(sheet.WorkDir, "md_chunks_"+sheet.SheetName)
	chunks, err := excel.SplitByRows(sheet.SheetPath, chunksDir, excel.ChunkRows(rowCount))
	if err != nil {
		return nil, fmt.Errorf("按行拆分失败: %w", err)
	}

	imagesDir := filepath.Join(sheet.WorkDir, "md_images_"+sheet.SheetName)
	var images []string
	for i := range chunks {
		imagePath := filepath.Join(imagesDir, fmt.Sprintf("rows_%d_to_%d.png", chunks[i].StartRow, chunks[i].EndRow))
		if err := p.Renderer.RenderWorkbook(chunks[i].FilePath, imagePath); err != nil {
			return nil, fmt.Errorf("渲染分片失败: %w", err)
		}
		chunks[i].ImagePath = imagePath
		images = append(images, imagePath)
	}

	// 分片图按起始行顺序一次传入，保证主表信息能关联到后续明细
	markdown, err := p.Engine.TranscribeTable(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("图片转写失败: %w", err)
	}
	raw, err := p.Engine.ExtractRecords(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("记录提取失败: %w", err)
	}
	return llm.ParseFeeDetails(raw)
}
