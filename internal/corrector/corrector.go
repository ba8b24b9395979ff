// Package corrector 对 OCR 识别出的 HTML 表格做金额级校验和模型纠错
package corrector

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zhang-zilu123/cost-ident/internal/llm"
	"github.com/zhang-zilu123/cost-ident/internal/model"
	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// defaultWorkers 同时处理的 OCR 输出目录数
const defaultWorkers = 4

const correctionPromptTemplate = `请对照图片中的原始表格，检查并修正下面这个 OCR 识别出的 HTML 表格。
重点核对每一行的金额数字，确保与图片完全一致，不要遗漏或改动任何行。
%s
待修正的表格：
%s

只输出修正后的 HTML 表格，不要输出其他内容。`

const strictRetryPrompt = `你上一次的回答不是一个合法的 HTML 表格。
请严格按照图片重新输出，只输出一个以 <table> 开头、</table> 结尾的 HTML 表格，
不要输出任何解释、markdown 代码块标记或多余文字。
待修正的表格：
%s`

// Corrector 表格纠错器，按目录并发处理 OCR 输出
type Corrector struct {
	Engine  llm.Engine
	Workers int
}

// New 创建纠错器
func New(engine llm.Engine) *Corrector {
	return &Corrector{Engine: engine, Workers: defaultWorkers}
}

// ProcessOutputDir 处理一个 OCR 输出根目录下的所有解析结果目录
// 每个子目录对应一个 PDF 的解析产物，目录间并发，汇总在单线程完成
func (c *Corrector) ProcessOutputDir(ctx context.Context, rootDir string) (*model.CorrectionResult, error) {
	start := time.Now()

	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("读取输出目录失败: %w", err)
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, filepath.Join(rootDir, e.Name()))
		}
	}

	workers := c.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	reportCh := make(chan model.FolderReport, len(folders))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, folder := range folders {
		wg.Add(1)
		go func(folder string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reportCh <- c.processFolder(ctx, folder)
		}(folder)
	}
	wg.Wait()
	close(reportCh)

	result := &model.CorrectionResult{
		InfoDict: make(map[string][]model.FeeRecord),
	}
	for report := range reportCh {
		result.ProcessedFolders = append(result.ProcessedFolders, report)
		result.TotalTables += report.TableCount
		result.SuccessfulTables += report.TablesSuccess
		if report.Success {
			result.SuccessCount++
		} else {
			result.ErrorCount++
		}
		result.InfoDict[report.FolderName] = report.ExtractedInfo
	}
	result.Duration = time.Since(start)
	return result, nil
}

// processFolder 处理一个解析结果目录：纠错所有表格、写出修正文件、提取费用记录
func (c *Corrector) processFolder(ctx context.Context, folderPath string) model.FolderReport {
	start := time.Now()
	report := model.FolderReport{
		FolderName: filepath.Base(folderPath),
		FolderPath: folderPath,
	}

	autoDir := filepath.Join(folderPath, "auto")
	if _, err := os.Stat(autoDir); err != nil {
		autoDir = folderPath
	}

	mdPath, middlePath := locateArtifacts(autoDir)
	if mdPath == "" {
		report.OverallErrors = append(report.OverallErrors, "目录中没有 markdown 文件")
		report.Duration = time.Since(start)
		return report
	}

	data, err := os.ReadFile(mdPath)
	if err != nil {
		report.OverallErrors = append(report.OverallErrors, fmt.Sprintf("读取 markdown 失败: %v", err))
		report.Duration = time.Since(start)
		return report
	}
	markdown := string(data)

	var blocks []tableBlock
	if middlePath != "" {
		if blocks, err = loadMiddleBlocks(middlePath); err != nil {
			log.Printf("加载中间 JSON 失败: %s, %v", middlePath, err)
		}
	}
	imageDir := filepath.Join(autoDir, "images")

	tables := ExtractTables(markdown)
	report.TableCount = len(tables)

	// 合计金额在整份文档里声明一次，对每个表格复用同一个期望值
	expected := findExpectedSum(markdown)

	corrected := make([]string, len(tables))
	for i, table := range tables {
		tr := c.correctTable(ctx, i, table, expected, blocks, imageDir)
		report.TableReports = append(report.TableReports, tr)
		if tr.Success {
			report.TablesSuccess++
		}
		corrected[i] = tr.CorrectedTable
	}

	finalMarkdown := ReplaceTables(markdown, corrected)
	outPath := filepath.Join(autoDir, util.Stem(filepath.Base(mdPath))+".corrected.md")
	if err := os.WriteFile(outPath, []byte(finalMarkdown), 0644); err != nil {
		report.OverallErrors = append(report.OverallErrors, fmt.Sprintf("写入修正文件失败: %v", err))
	} else {
		report.OutputFile = outPath
	}

	// 提取失败不阻断流程，记录为空列表
	records, err := c.extractRecords(ctx, finalMarkdown)
	if err != nil {
		log.Printf("提取费用记录失败: %s, %v", report.FolderName, err)
		report.OverallErrors = append(report.OverallErrors, fmt.Sprintf("提取费用记录失败: %v", err))
		records = []model.FeeRecord{}
	}
	report.ExtractedInfo = records

	report.Success = len(report.OverallErrors) == 0 && report.TablesSuccess == report.TableCount
	report.Duration = time.Since(start)
	return report
}

// correctTable 把一个表格交给模型对照切图修正，最多重试一次
// 每个表格都走修正，金额校验在修正之后做，只记录结果不决定成败
func (c *Corrector) correctTable(ctx context.Context, index int, table string, expected *float64, blocks []tableBlock, imageDir string) model.TableReport {
	tr := model.TableReport{TableIndex: index, CorrectedTable: table, ExpectedSum: expected}

	imagePath := bindTableImage(table, blocks, imageDir)
	if imagePath == "" {
		tr.Errors = append(tr.Errors, "找不到可比对的表格图片")
		return tr
	}

	sumHint := ""
	if expected != nil {
		sumHint = fmt.Sprintf("提示：文档声明的合计金额为 %.2f，请逐行核对明细金额。\n", *expected)
	}
	prompt := fmt.Sprintf(correctionPromptTemplate, sumHint, table)

	reply, err := c.Engine.CorrectTable(ctx, prompt, imagePath)
	if err != nil {
		tr.Errors = append(tr.Errors, fmt.Sprintf("模型调用失败: %v", err))
		return tr
	}
	candidate := llm.StripCodeFence(reply)

	if !validateHTMLTable(candidate) {
		tr.HadRetry = true
		reply, err = c.Engine.CorrectTable(ctx, fmt.Sprintf(strictRetryPrompt, table), imagePath)
		if err != nil {
			tr.Errors = append(tr.Errors, fmt.Sprintf("重试调用失败: %v", err))
			return tr
		}
		candidate = llm.StripCodeFence(reply)
		if !validateHTMLTable(candidate) {
			tr.Errors = append(tr.Errors, "重试后输出仍不是合法表格")
			return tr
		}
	}

	pass, sum := checkSumConsistency(candidate, expected)
	tr.HTMLValid = true
	tr.SumCheckPass = pass
	tr.CalculatedSum = sum
	tr.CorrectedTable = candidate
	tr.Success = true
	if pass {
		tr.Notes = "修正后金额校验通过"
	} else if expected != nil {
		tr.Notes = fmt.Sprintf("明细之和与声明合计相差 %.2f，保留待人工复核", math.Abs(sum-*expected))
	}
	return tr
}

// extractRecords 把修正后的 Markdown 交给模型提取费用记录
func (c *Corrector) extractRecords(ctx context.Context, markdown string) ([]model.FeeRecord, error) {
	if strings.TrimSpace(markdown) == "" {
		return []model.FeeRecord{}, nil
	}
	raw, err := c.Engine.ExtractRecords(ctx, markdown)
	if err != nil {
		return nil, err
	}
	return llm.ParseFeeDetails(raw)
}

// locateArtifacts 在目录里找出 markdown 正文和中间 JSON，跳过已修正的文件
func locateArtifacts(dir string) (mdPath, middlePath string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ""
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, "_middle.json"):
			middlePath = filepath.Join(dir, name)
		case strings.HasSuffix(name, ".md") && !strings.HasSuffix(name, ".corrected.md"):
			mdPath = filepath.Join(dir, name)
		}
	}
	return mdPath, middlePath
}
