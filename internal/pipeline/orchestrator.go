// Package pipeline 串联 Excel 预处理、版式识别、分路处理和结果汇总
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/zhang-zilu123/cost-ident/internal/excel"
	"github.com/zhang-zilu123/cost-ident/internal/excel/render"
	"github.com/zhang-zilu123/cost-ident/internal/llm"
	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// 进度事件类型
const (
	EventPreparing   = "preparing"
	EventClassifying = "classifying"
	EventRouting     = "routing"
	EventProcessing  = "processing"
	EventAggregating = "aggregating"
	EventWarning     = "warning"
	EventDone        = "done"
)

// Orchestrator 费用识别主流程编排器
type Orchestrator struct {
	Preparer *excel.Preparer
	Engine   llm.Engine
	Renderer render.Rasterizer

	flat         Processor
	block        Processor
	masterDetail Processor

	progress chan model.ProgressEvent
}

// NewOrchestrator 创建编排器
func NewOrchestrator(preparer *excel.Preparer, engine llm.Engine, renderer render.Rasterizer) *Orchestrator {
	return &Orchestrator{
		Preparer:     preparer,
		Engine:       engine,
		Renderer:     renderer,
		flat:         &FlatProcessor{Engine: engine, Renderer: renderer},
		block:        &BlockProcessor{Engine: engine, Renderer: renderer},
		masterDetail: &MasterDetailProcessor{Engine: engine, Renderer: renderer},
		progress:     make(chan model.ProgressEvent, 64),
	}
}

// Progress 返回进度事件通道
func (o *Orchestrator) Progress() <-chan model.ProgressEvent {
	return o.progress
}

// emit 发送进度事件，通道满时丢弃，不阻塞主流程
func (o *Orchestrator) emit(eventType, format string, args ...interface{}) {
	select {
	case o.progress <- model.NewProgress(eventType, fmt.Sprintf(format, args...)):
	default:
	}
}

// ProcessFiles 处理一批 Excel 文件，返回汇总结果
// 单个文件或工作表失败只记录警告，不中断整批处理
func (o *Orchestrator) ProcessFiles(ctx context.Context, inputFiles []string, workRoot string) (*model.BatchResult, error) {
	result := model.NewBatchResult()

	// 阶段一：预处理，每个文件拆成若干可识别的单工作表
	o.emit(EventPreparing, "开始预处理 %d 个文件", len(inputFiles))
	var sheets []model.SheetInfo
	for _, file := range inputFiles {
		fileSheets, err := o.Preparer.PrepareFile(ctx, file, workRoot)
		if err != nil {
			log.Printf("文件预处理失败: %s, %v", file, err)
			o.emit(EventWarning, "文件预处理失败: %s", file)
			continue
		}
		sheets = append(sheets, fileSheets...)
		for _, s := range fileSheets {
			result.Files = append(result.Files, s.SheetPath, s.ImagePath)
		}
		result.FileMapping[fileSheets[0].SafeName] = file
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("没有可处理的工作表")
	}

	// 阶段二：版式识别，所有工作表图片合并为一次模型调用
	o.emit(EventClassifying, "识别 %d 个工作表的版式", len(sheets))
	images := make([]string, len(sheets))
	for i, s := range sheets {
		images[i] = s.ImagePath
	}
	raw, err := o.Engine.DetectLayout(ctx, images)
	if err != nil {
		// 识别失败时全部按未知版式处理
		log.Printf("版式识别调用失败: %v", err)
		o.emit(EventWarning, "版式识别失败，全部按通用方式处理")
		raw = ""
	}
	layouts := llm.ParseLayoutReply(raw, len(sheets))
	for i := range sheets {
		sheets[i].Layout = layouts[i]
	}

	// 阶段三：按版式排定处理顺序
	o.emit(EventRouting, "排定处理顺序")
	ordered := RouteSheets(sheets)

	// 阶段四：逐表处理
	for i, sheet := range ordered {
		o.emit(EventProcessing, "处理工作表 %s（%s, %d/%d）", sheet.SheetName, sheet.Layout, i+1, len(ordered))
		records, err := o.processSheet(ctx, sheet)
		if err != nil {
			log.Printf("工作表处理失败: %s/%s, %v", sheet.OriginalFile, sheet.SheetName, err)
			o.emit(EventWarning, "工作表处理失败: %s/%s", sheet.OriginalFile, sheet.SheetName)
			continue
		}
		for j := range records {
			records[j].SourceFile = sheet.OriginalFile
		}
		result.ExcelData = append(result.ExcelData, records...)
	}

	// 阶段五：汇总
	o.emit(EventAggregating, "汇总 %d 条费用记录", len(result.ExcelData))
	o.emit(EventDone, "处理完成")
	return result, nil
}

func (o *Orchestrator) processSheet(ctx context.Context, sheet model.SheetInfo) ([]model.FeeRecord, error) {
	switch sheet.Layout {
	case model.LayoutFlat:
		return o.flat.Process(ctx, sheet)
	case model.LayoutMasterDetail:
		return o.masterDetail.Process(ctx, sheet)
	default:
		// 分块表和未识别版式共用整表路径
		return o.block.Process(ctx, sheet)
	}
}
