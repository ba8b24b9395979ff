// Package render 把工作表渲染为 PNG 图片，供视觉模型识别使用
package render

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// Rasterizer 把 xlsx 文件渲染成 PNG 图片
type Rasterizer interface {
	RenderWorkbook(xlsxPath, pngPath string) error
	RenderDirectory(xlsxDir, imageDir string) ([]string, error)
}

// TableRenderer 基于 gg 的表格渲染器
// FontPath 为空时退化为内置点阵字体，中文会显示为占位符
type TableRenderer struct {
	FontPath string
	FontSize float64
	MaxWidth int

	face font.Face
}

// NewTableRenderer 创建渲染器并加载字体
func NewTableRenderer(fontPath string, maxWidth int) (*TableRenderer, error) {
	r := &TableRenderer{
		FontPath: fontPath,
		FontSize: 16,
		MaxWidth: maxWidth,
	}
	if fontPath == "" {
		r.face = basicfont.Face7x13
		return r, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("读取字体文件失败: %w", err)
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败: %w", err)
	}
	r.face = truetype.NewFace(ft, &truetype.Options{Size: r.FontSize})
	return r, nil
}

const (
	cellPaddingX = 8
	cellHeight   = 28
	charWidth    = 10
	minCellWidth = 60
)

// RenderWorkbook 把第一个工作表渲染成网格表格图片
func (r *TableRenderer) RenderWorkbook(xlsxPath, pngPath string) error {
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("工作簿没有工作表: %s", xlsxPath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("工作表为空: %s", xlsxPath)
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	// 每列宽度按该列最长内容估算
	colWidths := make([]int, maxCols)
	for c := 0; c < maxCols; c++ {
		maxLen := 0
		for _, row := range rows {
			if c < len(row) {
				if n := utf8.RuneCountInString(row[c]); n > maxLen {
					maxLen = n
				}
			}
		}
		w := maxLen*charWidth + cellPaddingX*2
		if w < minCellWidth {
			w = minCellWidth
		}
		colWidths[c] = w
	}

	totalWidth := 1
	for _, w := range colWidths {
		totalWidth += w
	}
	totalHeight := len(rows)*cellHeight + 1

	dc := gg.NewContext(totalWidth, totalHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(r.face)

	// 网格线
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	x := 0.5
	for c := 0; c <= maxCols; c++ {
		dc.DrawLine(x, 0, x, float64(totalHeight))
		dc.Stroke()
		if c < maxCols {
			x += float64(colWidths[c])
		}
	}
	for rIdx := 0; rIdx <= len(rows); rIdx++ {
		y := float64(rIdx*cellHeight) + 0.5
		dc.DrawLine(0, y, float64(totalWidth), y)
		dc.Stroke()
	}

	// 单元格内容
	dc.SetRGB(0, 0, 0)
	for rIdx, row := range rows {
		cellX := 0
		for c := 0; c < maxCols; c++ {
			if c < len(row) && strings.TrimSpace(row[c]) != "" {
				tx := float64(cellX + cellPaddingX)
				ty := float64(rIdx*cellHeight) + float64(cellHeight)/2
				dc.DrawStringAnchored(row[c], tx, ty, 0, 0.35)
			}
			cellX += colWidths[c]
		}
	}

	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return err
	}
	if err := dc.SavePNG(pngPath); err != nil {
		return fmt.Errorf("保存图片失败: %w", err)
	}

	// 超宽图等比缩放并轻微锐化，避免模型输入超限
	if r.MaxWidth > 0 && totalWidth > r.MaxWidth {
		img, err := imaging.Open(pngPath)
		if err != nil {
			return fmt.Errorf("重新打开图片失败: %w", err)
		}
		resized := imaging.Resize(img, r.MaxWidth, 0, imaging.Lanczos)
		resized = imaging.Sharpen(resized, 0.5)
		if err := imaging.Save(resized, pngPath); err != nil {
			return fmt.Errorf("保存缩放图片失败: %w", err)
		}
	}
	return nil
}

// RenderDirectory 渲染目录下所有 xlsx 文件，输出同名 PNG
// 返回图片路径，顺序与文件名排序一致，单个文件失败则跳过
func (r *TableRenderer) RenderDirectory(xlsxDir, imageDir string) ([]string, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(xlsxDir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") {
			continue
		}
		src := filepath.Join(xlsxDir, e.Name())
		dst := filepath.Join(imageDir, util.Stem(e.Name())+".png")
		if err := r.RenderWorkbook(src, dst); err != nil {
			log.Printf("渲染图片失败: %s, %v", src, err)
			continue
		}
		images = append(images, dst)
	}
	return images, nil
}
