package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhang-zilu123/cost-ident/internal/convert"
	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// IntakeResult 多格式文件分拣结果
// Excel 走工作表识别流程，PDF 与图片走文档解析流程
type IntakeResult struct {
	ExcelFiles  []string
	PDFFiles    []string
	ImageFiles  []string
	FileMapping map[string]string
	Skipped     []string
}

// Intake 上传文件分拣器，把各种格式归一到两条处理路径
type Intake struct {
	Converter convert.Converter
}

// NewIntake 创建分拣器
func NewIntake(converter convert.Converter) *Intake {
	return &Intake{Converter: converter}
}

// SortFiles 分拣一批上传文件
// 大写扩展名先改为小写；Word 和 RTF 转成 PDF；不支持的格式记入 Skipped
func (in *Intake) SortFiles(ctx context.Context, files []string, convertedDir string) (*IntakeResult, error) {
	if err := os.MkdirAll(convertedDir, 0755); err != nil {
		return nil, err
	}

	result := &IntakeResult{FileMapping: make(map[string]string)}
	for _, file := range files {
		file, err := normalizeExtension(file)
		if err != nil {
			log.Printf("重命名文件失败: %s, %v", file, err)
			result.Skipped = append(result.Skipped, filepath.Base(file))
			continue
		}
		if info, err := os.Stat(file); err != nil || info.Size() == 0 {
			log.Printf("文件为空或不可读: %s", file)
			result.Skipped = append(result.Skipped, filepath.Base(file))
			continue
		}

		base := filepath.Base(file)
		switch strings.ToLower(filepath.Ext(file)) {
		case ".xls", ".xlsx":
			result.ExcelFiles = append(result.ExcelFiles, file)
			result.FileMapping[util.SafeBaseName(util.Stem(base))] = base
		case ".pdf":
			result.PDFFiles = append(result.PDFFiles, file)
		case ".jpg", ".jpeg", ".png":
			result.ImageFiles = append(result.ImageFiles, file)
		case ".doc", ".docx", ".rtf":
			pdfPath := filepath.Join(convertedDir, util.Stem(base)+".pdf")
			if err := in.Converter.ToPDF(ctx, file, pdfPath); err != nil {
				log.Printf("转换 PDF 失败: %s, %v", file, err)
				result.Skipped = append(result.Skipped, base)
				continue
			}
			result.PDFFiles = append(result.PDFFiles, pdfPath)
		default:
			result.Skipped = append(result.Skipped, base)
		}
	}

	if len(result.ExcelFiles) == 0 && len(result.PDFFiles) == 0 && len(result.ImageFiles) == 0 {
		return nil, fmt.Errorf("没有可处理的文件")
	}
	return result, nil
}

// normalizeExtension 把大写扩展名改成小写并重命名文件
func normalizeExtension(path string) (string, error) {
	ext := filepath.Ext(path)
	lower := strings.ToLower(ext)
	if ext == lower {
		return path, nil
	}
	newPath := strings.TrimSuffix(path, ext) + lower
	if err := os.Rename(path, newPath); err != nil {
		return path, err
	}
	return newPath, nil
}
