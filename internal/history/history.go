// Package history 提交历史的文件存档
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// Entry 一次提交的历史存档
type Entry struct {
	UploadTime       string            `json:"upload_time"`
	DisplayTime      string            `json:"display_time"`
	OriginalFilename string            `json:"original_filename"`
	RecordCount      int               `json:"record_count"`
	Data             []model.FeeRecord `json:"data"`
}

// Manager 历史存档管理器，每次提交写一个 JSON 文件
type Manager struct {
	dir string
}

// NewManager 创建历史管理器，dir 不存在时自动创建
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建历史目录失败: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Save 保存一次提交记录，返回存档文件名
func (m *Manager) Save(originalFilename string, records []model.FeeRecord) (string, error) {
	now := time.Now()
	entry := Entry{
		UploadTime:       now.Format("20060102_150405"),
		DisplayTime:      now.Format("2006-01-02 15:04:05"),
		OriginalFilename: originalFilename,
		RecordCount:      len(records),
		Data:             records,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化历史记录失败: %w", err)
	}

	name := fmt.Sprintf("upload_%s.json", entry.UploadTime)
	if err := os.WriteFile(filepath.Join(m.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("写入历史文件失败: %w", err)
	}
	return name, nil
}

// List 列出所有历史记录，按时间倒序
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("读取历史目录失败: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "upload_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	// 文件名含时间戳，倒序即最新在前
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var result []Entry
	for _, name := range names {
		entry, err := m.load(name)
		if err != nil {
			// 损坏的存档跳过，不影响其余记录展示
			continue
		}
		result = append(result, *entry)
	}
	return result, nil
}

// Get 按存档时间戳读取一条历史记录
func (m *Manager) Get(uploadTime string) (*Entry, error) {
	return m.load(fmt.Sprintf("upload_%s.json", uploadTime))
}

func (m *Manager) load(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return nil, fmt.Errorf("读取历史文件失败: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("解析历史文件失败: %w", err)
	}
	return &entry, nil
}
