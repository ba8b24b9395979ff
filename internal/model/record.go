package model

// FeeRecord 一条费用明细记录
//
// JSON 键与大模型结构化输出的字段保持一致，便于直接反序列化
type FeeRecord struct {
	Contract   string `json:"外销合同"`
	Forwarder  string `json:"船代公司"`
	FeeName    string `json:"费用名称"`
	Currency   string `json:"货币代码"`
	Amount     string `json:"金额"`
	Note       string `json:"备注"`
	SourceFile string `json:"源文件"`
}

// FeeDetails 大模型结构化提取的顶层返回结构
type FeeDetails struct {
	Records []FeeRecord `json:"费用明细"`
}

// BatchResult 一次批量处理的汇总结果
type BatchResult struct {
	Files       []string          `json:"files"`       // 所有生成的产物文件（拆分表、图片）
	ExcelData   []FeeRecord       `json:"excelData"`   // 提取出的费用明细
	FileMapping map[string]string `json:"fileMapping"` // 产物文件名(无扩展名) -> 原始文件路径
}

// NewBatchResult 创建空的批量处理结果
func NewBatchResult() *BatchResult {
	return &BatchResult{
		Files:       []string{},
		ExcelData:   []FeeRecord{},
		FileMapping: map[string]string{},
	}
}
