package model

// SheetInfo 准备处理的单个工作表
//
// 由 SheetPreparer 在拆分阶段创建，布局检测后填入 Layout 字段，
// 处理完成后随工作目录一起丢弃
type SheetInfo struct {
	SheetPath    string     `json:"sheetPath"`    // 单 sheet 的 xlsx 文件
	SheetName    string     `json:"sheetName"`    // 工作表名
	ImagePath    string     `json:"imagePath"`    // 用于布局检测的渲染图片
	OriginalFile string     `json:"originalFile"` // 来源的原始上传文件
	SafeName     string     `json:"safeName"`     // ASCII 安全的文件名前缀
	WorkDir      string     `json:"workDir"`      // 临时工作目录
	BaseName     string     `json:"baseName"`     // 原始文件名（不含扩展名）
	Layout       LayoutKind `json:"layout"`       // 布局检测结果
}

// RowChunk 按行切分出的一个分块
// 行号区间随对象显式携带，不再依赖文件名解析
type RowChunk struct {
	FilePath  string `json:"filePath"`  // 分块的 xlsx 文件
	ImagePath string `json:"imagePath"` // 渲染后的图片
	StartRow  int    `json:"startRow"`  // 起始行号（1 起）
	EndRow    int    `json:"endRow"`    // 结束行号（含）
}
