// Package mineru 对接 MinerU 文档解析服务的 HTTP 客户端
package mineru

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhang-zilu123/cost-ident/internal/ocr"
	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// Client MinerU 服务客户端
// 上传 PDF 到 /file_parse，服务端返回包含 markdown、中间 JSON 和图片的 zip 包
type Client struct {
	Endpoint string
	httpc    *http.Client
}

// New 创建 MinerU 客户端
func New(endpoint string) *Client {
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		httpc:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// ParsePDF 实现 ocr.Engine
func (c *Client) ParsePDF(ctx context.Context, pdfPath, outDir string) (*ocr.ParseResult, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 失败: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.WriteField("return_middle_json", "true"); err != nil {
		return nil, err
	}
	if err := mw.WriteField("return_images", "true"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/file_parse", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 MinerU 服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("MinerU 服务返回 %d: %s", resp.StatusCode, string(msg))
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取解析结果失败: %w", err)
	}

	stem := util.Stem(filepath.Base(pdfPath))
	resultDir := filepath.Join(outDir, stem, "auto")
	if err := extractZip(archive, resultDir); err != nil {
		return nil, fmt.Errorf("解压解析结果失败: %w", err)
	}

	result := &ocr.ParseResult{
		OutputDir: resultDir,
		ImageDir:  filepath.Join(resultDir, "images"),
	}
	entries, err := os.ReadDir(resultDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, "_middle.json"):
			result.MiddleJSON = filepath.Join(resultDir, name)
		case strings.HasSuffix(name, ".md"):
			result.Markdown = filepath.Join(resultDir, name)
		}
	}
	if result.Markdown == "" {
		return nil, fmt.Errorf("解析结果缺少 markdown 文件: %s", resultDir)
	}
	return result, nil
}

// extractZip 把 zip 内容展开到目标目录，拒绝越界路径
func extractZip(data []byte, destDir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	for _, f := range reader.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip 条目路径非法: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}
