package excel

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhang-zilu123/cost-ident/internal/convert"
	"github.com/zhang-zilu123/cost-ident/internal/excel/render"
	"github.com/zhang-zilu123/cost-ident/internal/model"
	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// Preparer 把上传的 Excel 文件整理成可识别的单工作表文件集合
// 处理步骤：安全重命名、xls 转 xlsx、按工作表拆分、剔除空表、渲染图片
type Preparer struct {
	Converter convert.Converter
	Renderer  render.Rasterizer
}

// NewPreparer 创建工作簿预处理器
func NewPreparer(converter convert.Converter, renderer render.Rasterizer) *Preparer {
	return &Preparer{Converter: converter, Renderer: renderer}
}

// PrepareFile 预处理单个 Excel 文件，返回每个非空工作表的信息
// 工作目录为 workRoot/excel_work_<安全文件名>
func (p *Preparer) PrepareFile(ctx context.Context, inputPath, workRoot string) ([]model.SheetInfo, error) {
	originalName := filepath.Base(inputPath)
	safeName := util.SafeBaseName(util.Stem(originalName))

	workDir := filepath.Join(workRoot, "excel_work_"+safeName)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("创建工作目录失败: %w", err)
	}

	xlsxPath := inputPath
	ext := strings.ToLower(filepath.Ext(inputPath))
	switch ext {
	case ".xls":
		converted := filepath.Join(workDir, safeName+".xlsx")
		if err := p.Converter.ToXLSX(ctx, inputPath, converted); err != nil {
			return nil, fmt.Errorf("xls 转换失败: %w", err)
		}
		xlsxPath = converted
	case ".xlsx":
		// 统一复制到工作目录，避免后续格式化修改原始上传文件
		copied := filepath.Join(workDir, safeName+".xlsx")
		if err := copyFile(inputPath, copied); err != nil {
			return nil, fmt.Errorf("复制文件失败: %w", err)
		}
		xlsxPath = copied
	default:
		return nil, fmt.Errorf("不支持的 Excel 格式: %s", ext)
	}

	sheetsDir := filepath.Join(workDir, "sheets")
	sheetFiles, err := SplitSheets(xlsxPath, sheetsDir)
	if err != nil {
		return nil, fmt.Errorf("拆分工作表失败: %w", err)
	}
	if len(sheetFiles) == 0 {
		return nil, fmt.Errorf("工作簿没有可拆分的工作表: %s", originalName)
	}

	// 删除空工作表文件，不进入后续识别
	var kept []string
	for _, sf := range sheetFiles {
		if IsEmptyFile(sf) {
			log.Printf("跳过空工作表: %s", filepath.Base(sf))
			if err := os.Remove(sf); err != nil {
				log.Printf("删除空工作表文件失败: %s, %v", sf, err)
			}
			continue
		}
		kept = append(kept, sf)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("所有工作表均为空: %s", originalName)
	}

	imageDir := filepath.Join(workDir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, err
	}

	var sheets []model.SheetInfo
	for _, sf := range kept {
		sheetName := util.Stem(filepath.Base(sf))
		imagePath := filepath.Join(imageDir, sheetName+".png")
		if err := p.Renderer.RenderWorkbook(sf, imagePath); err != nil {
			log.Printf("渲染工作表图片失败: %s, %v", sf, err)
			continue
		}
		sheets = append(sheets, model.SheetInfo{
			SheetPath:    sf,
			SheetName:    sheetName,
			ImagePath:    imagePath,
			OriginalFile: originalName,
			SafeName:     safeName,
			WorkDir:      workDir,
			BaseName:     safeName,
		})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("没有可识别的工作表: %s", originalName)
	}
	return sheets, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
