// Package handlers 费用识别服务的 HTTP 接口
package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zhang-zilu123/cost-ident/internal/config"
	"github.com/zhang-zilu123/cost-ident/internal/exporter"
	"github.com/zhang-zilu123/cost-ident/internal/history"
	"github.com/zhang-zilu123/cost-ident/internal/model"
	"github.com/zhang-zilu123/cost-ident/internal/oa"
	"github.com/zhang-zilu123/cost-ident/internal/pipeline"
	"github.com/zhang-zilu123/cost-ident/internal/store"
)

// Services 处理器依赖的各业务组件
// 编排器按任务创建，每个识别任务有自己的进度通道，并发任务互不串扰
type Services struct {
	Store           *store.Store
	NewOrchestrator func() *pipeline.Orchestrator
	Intake          *pipeline.Intake
	Extractor       *pipeline.PDFExtractor
	History         *history.Manager
	OAConfig        config.OAConfig
	DataDir         string
}

// Handlers API 处理器
type Handlers struct {
	svc Services

	// OA 鉴权 token，登录后在内存中保存
	token   string
	tokenMu sync.RWMutex

	jobs   map[string]*analyzeJob
	jobsMu sync.RWMutex
}

// analyzeJob 一次异步识别任务
type analyzeJob struct {
	ID      string                `json:"id"`
	Status  string                `json:"status"` // running / done / error
	Events  []model.ProgressEvent `json:"events"`
	BatchID int64                 `json:"batchId,omitempty"`
	Error   string                `json:"error,omitempty"`
	mu      sync.Mutex
}

// New 创建处理器
func New(svc Services) *Handlers {
	return &Handlers{
		svc:  svc,
		jobs: make(map[string]*analyzeJob),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
	r.GET("/login/status", h.LoginStatus)

	r.POST("/upload", h.Upload)
	r.POST("/analyze", h.Analyze)
	r.GET("/analyze/:jobId", h.AnalyzeStatus)

	r.GET("/batches/:id/records", h.ListRecords)
	r.GET("/batches/:id/export", h.ExportRecords)
	r.PUT("/records/:id", h.UpdateRecord)
	r.DELETE("/records/:id", h.DeleteRecord)
	r.POST("/batches/:id/submit", h.Submit)

	r.GET("/history", h.ListHistory)
	r.GET("/history/:uploadTime", h.GetHistory)
}

// Login 保存 OA 鉴权 token
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}
	h.tokenMu.Lock()
	h.token = strings.TrimSpace(req.Token)
	h.tokenMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "登录成功"})
}

// LoginStatus 查询是否已登录
func (h *Handlers) LoginStatus(c *gin.Context) {
	h.tokenMu.RLock()
	loggedIn := h.token != ""
	h.tokenMu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"loggedIn": loggedIn})
}

// Upload 接收上传的文件，保存到数据目录后返回文件名列表
func (h *Handlers) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "上传表单无效"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有上传文件"})
		return
	}

	uploadsDir := filepath.Join(h.svc.DataDir, "uploads")
	var saved []string
	for _, file := range files {
		dst := filepath.Join(uploadsDir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("保存文件失败: %v", err)})
			return
		}
		saved = append(saved, filepath.Base(file.Filename))
	}
	c.JSON(http.StatusOK, gin.H{"files": saved})
}

// Analyze 发起一次异步识别任务
func (h *Handlers) Analyze(c *gin.Context) {
	var req struct {
		Files []string `json:"files" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件列表"})
		return
	}

	uploadsDir := filepath.Join(h.svc.DataDir, "uploads")
	var paths []string
	for _, name := range req.Files {
		p := filepath.Join(uploadsDir, filepath.Base(name))
		if _, err := os.Stat(p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("文件不存在: %s", name)})
			return
		}
		paths = append(paths, p)
	}

	job := &analyzeJob{
		ID:     uuid.NewString(),
		Status: "running",
	}
	h.jobsMu.Lock()
	h.jobs[job.ID] = job
	h.jobsMu.Unlock()

	go h.runAnalyze(job, paths)
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID})
}

// runAnalyze 后台执行识别流程并把进度写入任务
func (h *Handlers) runAnalyze(job *analyzeJob, paths []string) {
	ctx := context.Background()
	orch := h.svc.NewOrchestrator()

	// 进度事件持续写入任务，供轮询接口读取
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-orch.Progress():
				job.mu.Lock()
				job.Events = append(job.Events, ev)
				job.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	result, err := h.analyze(ctx, orch, paths)
	close(stop)

	job.mu.Lock()
	defer job.mu.Unlock()
	if err != nil {
		job.Status = "error"
		job.Error = err.Error()
		return
	}

	batchID, err := h.svc.Store.CreateBatch(strings.Join(baseNames(paths), ", "), result.ExcelData)
	if err != nil {
		job.Status = "error"
		job.Error = fmt.Sprintf("保存识别结果失败: %v", err)
		return
	}
	job.Status = "done"
	job.BatchID = batchID
}

// analyze 分拣文件并按格式走对应的识别流程
func (h *Handlers) analyze(ctx context.Context, orch *pipeline.Orchestrator, paths []string) (*model.BatchResult, error) {
	intake, err := h.svc.Intake.SortFiles(ctx, paths, filepath.Join(h.svc.DataDir, "converted"))
	if err != nil {
		return nil, err
	}

	result := model.NewBatchResult()
	if len(intake.ExcelFiles) > 0 {
		excelResult, err := orch.ProcessFiles(ctx, intake.ExcelFiles, filepath.Join(h.svc.DataDir, "output"))
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, excelResult.Files...)
		result.ExcelData = append(result.ExcelData, excelResult.ExcelData...)
		for k, v := range excelResult.FileMapping {
			result.FileMapping[k] = v
		}
	}

	docFiles := append(append([]string{}, intake.PDFFiles...), intake.ImageFiles...)
	if len(docFiles) > 0 {
		if h.svc.Extractor == nil {
			log.Printf("未配置 OCR 服务，跳过 %d 个 PDF/图片文件", len(docFiles))
		} else {
			records, mapping, err := h.svc.Extractor.ExtractFiles(ctx, docFiles, filepath.Join(h.svc.DataDir, "output"))
			if err != nil {
				return nil, err
			}
			result.ExcelData = append(result.ExcelData, records...)
			for k, v := range mapping {
				result.FileMapping[k] = v
			}
		}
	}

	if len(result.ExcelData) == 0 {
		return nil, fmt.Errorf("没有识别出任何费用记录")
	}
	return result, nil
}

// AnalyzeStatus 查询识别任务进度
func (h *Handlers) AnalyzeStatus(c *gin.Context) {
	h.jobsMu.RLock()
	job, ok := h.jobs[c.Param("jobId")]
	h.jobsMu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}

	job.mu.Lock()
	resp := gin.H{
		"id":     job.ID,
		"status": job.Status,
		"events": job.Events,
	}
	if job.BatchID != 0 {
		resp["batchId"] = job.BatchID
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	job.mu.Unlock()
	c.JSON(http.StatusOK, resp)
}

// ListRecords 列出一个批次的全部记录
func (h *Handlers) ListRecords(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "批次号无效"})
		return
	}
	records, err := h.svc.Store.ListBatchRecords(batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ExportRecords 把一个批次的记录导出为 Excel 下载
func (h *Handlers) ExportRecords(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "批次号无效"})
		return
	}
	stored, err := h.svc.Store.ListBatchRecords(batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	records := make([]model.FeeRecord, len(stored))
	for i, r := range stored {
		records[i] = r.FeeRecord
	}

	f, err := exporter.Export(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_%d.xlsx"`, batchID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		log.Printf("写出导出文件失败: %v", err)
	}
}

// UpdateRecord 更新一条记录
func (h *Handlers) UpdateRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "记录号无效"})
		return
	}
	var record model.FeeRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "记录内容无效"})
		return
	}
	if err := h.svc.Store.UpdateRecord(id, record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "更新成功"})
}

// DeleteRecord 删除一条记录
func (h *Handlers) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "记录号无效"})
		return
	}
	if err := h.svc.Store.DeleteRecord(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// Submit 把批次中待提交的记录上报 OA
// 上报成功的记录置为已提交，失败列表中的记录置为失败待重提，并写入历史存档
func (h *Handlers) Submit(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "批次号无效"})
		return
	}

	h.tokenMu.RLock()
	token := h.token
	h.tokenMu.RUnlock()
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return
	}

	stored, err := h.svc.Store.ListSubmittable(batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(stored) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有待提交的记录"})
		return
	}

	records := make([]model.FeeRecord, len(stored))
	splitIDs := make([]string, len(stored))
	for i, r := range stored {
		records[i] = r.FeeRecord
		splitIDs[i] = r.SplitID
	}

	client := oa.New(h.svc.OAConfig.BaseURL, h.svc.OAConfig.UploadPath, token)
	resp, err := client.Upload(c.Request.Context(), oa.BuildRows(records, splitIDs))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// 失败的保留失败状态，其余置为已提交
	failed := make(map[string]bool, len(resp.ErrorList))
	for _, id := range resp.ErrorList {
		failed[id] = true
	}
	var okIDs, errIDs []string
	for _, id := range splitIDs {
		if failed[id] {
			errIDs = append(errIDs, id)
		} else {
			okIDs = append(okIDs, id)
		}
	}
	if err := h.svc.Store.MarkStatus(okIDs, model.RecordSubmitted); err != nil {
		log.Printf("更新提交状态失败: %v", err)
	}
	if err := h.svc.Store.MarkStatus(errIDs, model.RecordError); err != nil {
		log.Printf("更新失败状态失败: %v", err)
	}

	// 成功提交的记录写入历史存档
	var submitted []model.FeeRecord
	for i, id := range splitIDs {
		if !failed[id] {
			submitted = append(submitted, records[i])
		}
	}
	if len(submitted) > 0 {
		sources := make(map[string]bool)
		for _, r := range submitted {
			sources[r.SourceFile] = true
		}
		var names []string
		for s := range sources {
			names = append(names, s)
		}
		if _, err := h.svc.History.Save(strings.Join(names, ", "), submitted); err != nil {
			log.Printf("写入历史存档失败: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"submitted": len(okIDs),
		"failed":    errIDs,
		"message":   resp.Message,
	})
}

// ListHistory 列出历史提交记录
func (h *Handlers) ListHistory(c *gin.Context) {
	entries, err := h.svc.History.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// GetHistory 按时间戳读取一条历史记录
func (h *Handlers) GetHistory(c *gin.Context) {
	entry, err := h.svc.History.Get(c.Param("uploadTime"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "历史记录不存在"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
