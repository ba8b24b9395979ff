// Package oa 对接 OA 系统的费用上报接口
package oa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// Client OA 上报客户端
type Client struct {
	BaseURL    string
	UploadPath string
	Token      string
	httpc      *http.Client
}

// New 创建 OA 客户端
func New(baseURL, uploadPath, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UploadPath: uploadPath,
		Token:      token,
		httpc:      &http.Client{Timeout: 60 * time.Second},
	}
}

// uploadRequest 上报接口请求体
type uploadRequest struct {
	Rows []model.SubmitRow `json:"rows"`
}

// Upload 上报一批费用记录
// 返回的 ErrorList 为提交失败的 split_id，调用方据此把对应记录置为失败状态
func (c *Client) Upload(ctx context.Context, rows []model.SubmitRow) (*model.SubmitResponse, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("没有可上报的记录")
	}

	body, err := json.Marshal(uploadRequest{Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("序列化上报数据失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.UploadPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("上报请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取上报响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OA 接口返回 %d: %s", resp.StatusCode, string(data))
	}

	var result model.SubmitResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析上报响应失败: %w", err)
	}
	if result.Code != 0 {
		return &result, fmt.Errorf("OA 上报被拒绝: %s", result.Message)
	}
	return &result, nil
}

// BuildRows 把复核库记录转换为 OA 接口的行格式
func BuildRows(records []model.FeeRecord, splitIDs []string) []model.SubmitRow {
	rows := make([]model.SubmitRow, 0, len(records))
	for i, r := range records {
		splitID := ""
		if i < len(splitIDs) {
			splitID = splitIDs[i]
		}
		rows = append(rows, model.SubmitRow{
			SplitID: splitID,
			WXHT:    r.Contract,
			SKDW:    r.Forwarder,
			FYMC:    r.FeeName,
			BB:      r.Currency,
			JE:      r.Amount,
			BZ:      r.Note,
		})
	}
	return rows
}
