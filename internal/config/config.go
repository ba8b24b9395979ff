package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	LLM       LLMConfig       `toml:"llm"`
	OCR       OCRConfig       `toml:"ocr"`
	OA        OAConfig        `toml:"oa"`
	OSS       OSSConfig       `toml:"oss"`
	Converter ConverterConfig `toml:"converter"`
	Render    RenderConfig    `toml:"render"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据目录配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LLMConfig 大模型服务配置
// APIKeys 支持多个 key 轮换使用，缓解限流
type LLMConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKeys     []string `toml:"api_keys"`
	VisionModel string   `toml:"vision_model"`
	TextModel   string   `toml:"text_model"`
}

// OCRConfig OCR 解析服务配置
type OCRConfig struct {
	Endpoint string `toml:"endpoint"`
	Backend  string `toml:"backend"`
}

// OAConfig OA 上报接口配置
type OAConfig struct {
	BaseURL    string `toml:"base_url"`
	UploadPath string `toml:"upload_path"`
	LoginPath  string `toml:"login_path"`
}

// OSSConfig 对象存储配置
type OSSConfig struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	ObjectPrefix string `toml:"object_prefix"`
}

// ConverterConfig 文档格式转换配置
type ConverterConfig struct {
	SofficeBin string `toml:"soffice_bin"`
}

// RenderConfig 表格渲染配置
type RenderConfig struct {
	FontPath string `toml:"font_path"`
	MaxWidth int    `toml:"max_width"`
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20372,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		LLM: LLMConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			VisionModel: "qwen3-vl-plus",
			TextModel:   "qwen-max",
		},
		OCR: OCRConfig{
			Backend: "pipeline",
		},
		OA: OAConfig{
			UploadPath: "/api/internal/cost_ident/upload_oa",
			LoginPath:  "/api/login",
		},
		OSS: OSSConfig{
			Bucket:       "muai-models",
			ObjectPrefix: "cost_ident",
		},
		Converter: ConverterConfig{
			SofficeBin: "soffice",
		},
		Render: RenderConfig{
			MaxWidth: 2200,
		},
	}
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从可执行文件同目录的 config.toml 加载配置
// 配置文件不存在时使用默认配置；密钥类字段随后由环境变量覆盖
func LoadConfig() (*AppConfig, error) {
	cfg := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv 用 .env / 环境变量覆盖密钥和端点
func applyEnv(cfg *AppConfig) {
	// .env 不存在时忽略错误，直接读环境变量
	_ = godotenv.Load()

	var keys []string
	for _, name := range []string{"DASHSCOPE_API_KEY1", "DASHSCOPE_API_KEY2", "DASHSCOPE_API_KEY3"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			keys = append(keys, v)
		}
	}
	if len(keys) > 0 {
		cfg.LLM.APIKeys = keys
	}

	if v := os.Getenv("COSTIDENT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("COSTIDENT_OCR_ENDPOINT"); v != "" {
		cfg.OCR.Endpoint = v
	}
	if v := os.Getenv("COSTIDENT_OA_BASE_URL"); v != "" {
		cfg.OA.BaseURL = v
	}
	if v := os.Getenv("COSTIDENT_FONT_PATH"); v != "" {
		cfg.Render.FontPath = v
	}
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(cfg *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, cfg.Data.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	for _, subdir := range []string{"uploads", "converted", "output", "history"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
