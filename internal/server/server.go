package server

import (
	_ "embed"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/zhang-zilu123/cost-ident/internal/config"
	"github.com/zhang-zilu123/cost-ident/internal/convert"
	"github.com/zhang-zilu123/cost-ident/internal/corrector"
	"github.com/zhang-zilu123/cost-ident/internal/excel"
	"github.com/zhang-zilu123/cost-ident/internal/excel/render"
	"github.com/zhang-zilu123/cost-ident/internal/history"
	"github.com/zhang-zilu123/cost-ident/internal/llm/dashscope"
	"github.com/zhang-zilu123/cost-ident/internal/ocr/mineru"
	"github.com/zhang-zilu123/cost-ident/internal/oss"
	"github.com/zhang-zilu123/cost-ident/internal/pipeline"
	"github.com/zhang-zilu123/cost-ident/internal/server/handlers"
	"github.com/zhang-zilu123/cost-ident/internal/store"
)

//go:embed index.html
var indexPage []byte

// Server HTTP 服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	api    *handlers.Handlers
}

// NewServer 创建服务器并完成各组件装配
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Fatalf("初始化数据目录失败: %v", err)
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, "costident.db"))
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	renderer, err := render.NewTableRenderer(cfg.Render.FontPath, cfg.Render.MaxWidth)
	if err != nil {
		log.Fatalf("初始化表格渲染器失败: %v", err)
	}

	engine := dashscope.New(cfg.LLM.BaseURL, cfg.LLM.APIKeys, cfg.LLM.VisionModel, cfg.LLM.TextModel)
	converter := &convert.LibreOffice{Bin: cfg.Converter.SofficeBin}
	preparer := excel.NewPreparer(converter, renderer)
	newOrchestrator := func() *pipeline.Orchestrator {
		return pipeline.NewOrchestrator(preparer, engine, renderer)
	}
	intake := pipeline.NewIntake(converter)

	var uploader oss.Uploader = oss.NopUploader{}
	if cfg.OSS.Endpoint != "" {
		uploader = oss.NewHTTPUploader(cfg.OSS.Endpoint, "")
	}
	var extractor *pipeline.PDFExtractor
	if cfg.OCR.Endpoint != "" {
		ocrEngine := mineru.New(cfg.OCR.Endpoint)
		extractor = pipeline.NewPDFExtractor(ocrEngine, corrector.New(engine), uploader)
	}

	histMgr, err := history.NewManager(filepath.Join(dataDir, "history"))
	if err != nil {
		log.Fatalf("初始化历史存档失败: %v", err)
	}

	api := handlers.New(handlers.Services{
		Store:           sqliteStore,
		NewOrchestrator: newOrchestrator,
		Intake:          intake,
		Extractor:       extractor,
		History:         histMgr,
		OAConfig:        cfg.OA,
		DataDir:         dataDir,
	})

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		api:    api,
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		s.api.RegisterRoutes(api)
	}

	s.router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 释放资源
func (s *Server) Close() error {
	return s.store.Close()
}
