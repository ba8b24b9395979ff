package llm

import "context"

// Engine 大模型服务接口
//
// 所有方法返回模型的原始文本回复，解析由调用方的 Parse* 辅助函数完成，
// 便于在测试中用固定回复替换真实服务
type Engine interface {
	// DetectLayout 对一批工作表图片做一次性布局分类
	// 回复为 JSON，键为 "index_N"（1 起），值为布局编号
	DetectLayout(ctx context.Context, imagePaths []string) (string, error)

	// DetectHeaderRow 在给定的前若干行中判断表头行的 0 起索引
	DetectHeaderRow(ctx context.Context, rows [][]string) (string, error)

	// TranscribeTable 将一组表格图片按顺序转写为一份 Markdown
	TranscribeTable(ctx context.Context, imagePaths []string) (string, error)

	// ExtractRecords 从 Markdown 中提取费用明细，返回 JSON 字符串
	ExtractRecords(ctx context.Context, markdown string) (string, error)

	// CorrectTable 结合原始图片纠正 OCR 识别的表格，返回模型原始回复
	CorrectTable(ctx context.Context, prompt string, imagePath string) (string, error)
}
