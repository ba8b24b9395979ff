package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"

	"github.com/zhang-zilu123/cost-ident/internal/corrector"
	"github.com/zhang-zilu123/cost-ident/internal/model"
	"github.com/zhang-zilu123/cost-ident/internal/ocr"
	"github.com/zhang-zilu123/cost-ident/internal/oss"
	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// PDFExtractor PDF 费用识别流程：文档解析、表格纠错、记录提取
type PDFExtractor struct {
	OCR       ocr.Engine
	Corrector *corrector.Corrector
	Uploader  oss.Uploader
}

// NewPDFExtractor 创建 PDF 识别流程
func NewPDFExtractor(ocrEngine ocr.Engine, c *corrector.Corrector, uploader oss.Uploader) *PDFExtractor {
	return &PDFExtractor{OCR: ocrEngine, Corrector: c, Uploader: uploader}
}

// ExtractFiles 处理一批 PDF 和图片文件，返回带来源标记的费用记录
// 单个文件失败只记录警告；金额接近零的记录被丢弃
func (e *PDFExtractor) ExtractFiles(ctx context.Context, docFiles []string, outDir string) ([]model.FeeRecord, map[string]string, error) {
	fileMapping := make(map[string]string)
	stemToOriginal := make(map[string]string)

	var parsed int
	for _, pdfPath := range docFiles {
		// 图片直接交给解析服务，PDF 先做结构校验
		if strings.EqualFold(filepath.Ext(pdfPath), ".pdf") {
			if err := validatePDF(pdfPath); err != nil {
				log.Printf("PDF 文件无效: %s, %v", pdfPath, err)
				continue
			}
		}

		// 原始文件上传对象存储，失败不影响识别
		if e.Uploader != nil {
			if err := e.Uploader.Upload(ctx, pdfPath); err != nil {
				log.Printf("上传对象存储失败: %s, %v", pdfPath, err)
			}
		}

		if _, err := e.OCR.ParsePDF(ctx, pdfPath, outDir); err != nil {
			log.Printf("PDF 解析失败: %s, %v", pdfPath, err)
			continue
		}
		base := filepath.Base(pdfPath)
		stem := util.Stem(base)
		stemToOriginal[stem] = base
		fileMapping[stem] = pdfPath
		parsed++
	}
	if parsed == 0 {
		return nil, nil, fmt.Errorf("没有成功解析的 PDF 文件")
	}

	correction, err := e.Corrector.ProcessOutputDir(ctx, outDir)
	if err != nil {
		return nil, nil, fmt.Errorf("表格纠错失败: %w", err)
	}

	var records []model.FeeRecord
	for folderName, folderRecords := range correction.InfoDict {
		sourceFile := stemToOriginal[folderName]
		if sourceFile == "" {
			sourceFile = folderName
		}
		for _, r := range folderRecords {
			amount, err := util.ParseAmount(r.Amount)
			if err != nil {
				log.Printf("金额无法解析: %q, 来源 %s", r.Amount, sourceFile)
				continue
			}
			// 零金额记录没有业务意义，直接丢弃
			if math.Abs(amount) < 0.001 {
				continue
			}
			r.Amount = fmt.Sprintf("%.2f", amount)
			r.SourceFile = sourceFile
			records = append(records, r)
		}
	}
	return records, fileMapping, nil
}

// validatePDF 用 PDF 解析库打开文件确认结构有效
func validatePDF(path string) error {
	f, reader, err := ledongpdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if reader.NumPage() == 0 {
		return fmt.Errorf("PDF 没有页面")
	}
	return nil
}
