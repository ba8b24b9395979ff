package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client 百炼（DashScope）OpenAI 兼容接口客户端
// 实现 llm.Engine；一个实例可被多个 goroutine 并发使用
type Client struct {
	BaseURL     string
	APIKeys     []string
	VisionModel string
	TextModel   string
	httpc       *http.Client
}

// New 创建客户端
// keys 支持多个，按请求随机轮换以分摊限流额度
func New(baseURL string, keys []string, visionModel, textModel string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKeys:     keys,
		VisionModel: visionModel,
		TextModel:   textModel,
		httpc:       &http.Client{Timeout: 180 * time.Second},
	}
}

func (c *Client) pickKey() (string, error) {
	if len(c.APIKeys) == 0 {
		return "", fmt.Errorf("未配置 DASHSCOPE_API_KEY")
	}
	return c.APIKeys[rand.Intn(len(c.APIKeys))], nil
}

// contentPart chat/completions 消息里的一个内容片段
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Seed           int                `json:"seed,omitempty"`
	ResponseFormat *map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chat 发送一次 chat/completions 请求并取出首条回复文本
func (c *Client) chat(ctx context.Context, req chatRequest) (string, error) {
	key, err := c.pickKey()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("请求大模型服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("大模型服务返回 %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("解析大模型回复失败: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("大模型服务错误: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("大模型回复为空")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// visionParts 把图片列表编码为消息内容片段
func visionParts(imagePaths []string, prompt string) ([]contentPart, error) {
	parts := make([]contentPart, 0, len(imagePaths)+1)
	for _, p := range imagePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("读取图片失败 %s: %w", p, err)
		}
		mime := "image/png"
		if ext := strings.ToLower(filepath.Ext(p)); ext == ".jpg" || ext == ".jpeg" {
			mime = "image/jpeg"
		}
		b64 := base64.StdEncoding.EncodeToString(data)
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:" + mime + ";base64," + b64},
		})
	}
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	return parts, nil
}

// DetectLayout 对一批工作表图片做一次布局分类调用
func (c *Client) DetectLayout(ctx context.Context, imagePaths []string) (string, error) {
	parts, err := visionParts(imagePaths, layoutDetectionPrompt)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, chatRequest{
		Model:       c.VisionModel,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: 0,
	})
}

// DetectHeaderRow 判断表头行索引
func (c *Client) DetectHeaderRow(ctx context.Context, rows [][]string) (string, error) {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, chatRequest{
		Model: c.TextModel,
		Messages: []chatMessage{
			{Role: "system", Content: headerDetectionPrompt},
			{Role: "user", Content: string(rowsJSON)},
		},
		Temperature: 0,
	})
}

// TranscribeTable 将表格图片序列转写为 Markdown
func (c *Client) TranscribeTable(ctx context.Context, imagePaths []string) (string, error) {
	parts, err := visionParts(imagePaths, tableTranscriptionPrompt)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, chatRequest{
		Model:       c.VisionModel,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: 0,
	})
}

// ExtractRecords 从 Markdown 提取结构化费用明细
func (c *Client) ExtractRecords(ctx context.Context, markdown string) (string, error) {
	format := map[string]string{"type": "json_object"}
	return c.chat(ctx, chatRequest{
		Model: c.TextModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant designed to output JSON."},
			{Role: "user", Content: extractionPrompt + markdown},
		},
		Temperature:    0,
		ResponseFormat: &format,
	})
}

// CorrectTable 结合原图纠正 OCR 表格
func (c *Client) CorrectTable(ctx context.Context, prompt string, imagePath string) (string, error) {
	parts, err := visionParts([]string{imagePath}, prompt)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, chatRequest{
		Model:       c.VisionModel,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: 0,
		MaxTokens:   10000,
		Seed:        42,
	})
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
