package model

import "time"

// TableReport 单个表格纠错的结果
type TableReport struct {
	TableIndex     int      `json:"tableIndex"`
	Success        bool     `json:"success"`
	HadRetry       bool     `json:"hadRetry"`
	HTMLValid      bool     `json:"htmlValid"`
	SumCheckPass   bool     `json:"sumCheckPass"`
	CalculatedSum  float64  `json:"calculatedSum"`
	ExpectedSum    *float64 `json:"expectedSum,omitempty"`
	Notes          string   `json:"notes"`
	Errors         []string `json:"errors,omitempty"`
	CorrectedTable string   `json:"-"`
}

// FolderReport 单个 OCR 输出目录的纠错汇总
type FolderReport struct {
	FolderName    string        `json:"folderName"`
	FolderPath    string        `json:"folderPath"`
	Success       bool          `json:"success"`
	TableCount    int           `json:"tableCount"`
	TablesSuccess int           `json:"tablesSuccess"`
	TableReports  []TableReport `json:"tableReports"`
	OverallErrors []string      `json:"overallErrors,omitempty"`
	OutputFile    string        `json:"outputFile,omitempty"`
	ExtractedInfo []FeeRecord   `json:"extractedInfo"`
	Duration      time.Duration `json:"duration"`
}

// CorrectionResult 整个输出目录的纠错汇总
type CorrectionResult struct {
	ProcessedFolders []FolderReport         `json:"processedFolders"`
	SuccessCount     int                    `json:"successCount"`
	ErrorCount       int                    `json:"errorCount"`
	TotalTables      int                    `json:"totalTables"`
	SuccessfulTables int                    `json:"successfulTables"`
	InfoDict         map[string][]FeeRecord `json:"infoDict"`
	Duration         time.Duration          `json:"duration"`
}
