// Package oss 原始凭证文件的对象存储归档
package oss

import (
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
)

// Uploader 把本地文件归档到远端存储
type Uploader interface {
	Upload(ctx context.Context, filePath string) error
}

// HTTPUploader 通过内部归档服务的 HTTP 接口上传文件
type HTTPUploader struct {
	Endpoint string
	Token    string
	httpc    *http.Client
}

// NewHTTPUploader 创建归档上传客户端
func NewHTTPUploader(endpoint, token string) *HTTPUploader {
	return &HTTPUploader{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Token:    token,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload 实现 Uploader
func (u *HTTPUploader) Upload(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint+"/upload", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	resp, err := u.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("归档服务返回 %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// NopUploader 未配置对象存储时的空实现
type NopUploader struct{}

// Upload 实现 Uploader，不做任何事
func (NopUploader) Upload(ctx context.Context, filePath string) error { return nil }
