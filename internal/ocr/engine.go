// Package ocr 定义 PDF 文档解析服务的抽象
package ocr

import "context"

// ParseResult 一次 PDF 解析的产物位置
// Markdown 为识别出的正文，MiddleJSON 为版面结构中间文件，ImageDir 为切出的表格图片目录
type ParseResult struct {
	OutputDir  string
	Markdown   string
	MiddleJSON string
	ImageDir   string
}

// Engine PDF 结构化识别引擎
type Engine interface {
	// ParsePDF 解析一个 PDF，产物写入 outDir/<文件名去扩展名>/auto/ 下
	ParsePDF(ctx context.Context, pdfPath, outDir string) (*ParseResult, error)
}
