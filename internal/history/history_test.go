package history

import (
	"testing"
	"time"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

func TestSaveAndList(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("创建历史管理器失败: %v", err)
	}

	records := []model.FeeRecord{
		{FeeName: "海运费", Currency: "USD", Amount: "1200.00", SourceFile: "a.xlsx"},
		{FeeName: "港杂费", Currency: "CNY", Amount: "350.00", SourceFile: "a.xlsx"},
	}
	name, err := m.Save("费用表.xlsx", records)
	if err != nil {
		t.Fatalf("保存历史失败: %v", err)
	}
	if name == "" {
		t.Fatal("存档文件名为空")
	}

	// 第二条存档晚一秒，保证文件名时间戳不同
	time.Sleep(1100 * time.Millisecond)
	if _, err := m.Save("第二批.xlsx", records[:1]); err != nil {
		t.Fatalf("保存历史失败: %v", err)
	}

	entries, err := m.List()
	if err != nil {
		t.Fatalf("列出历史失败: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("期望 2 条历史, 实际 %d", len(entries))
	}
	// 最新在前
	if entries[0].OriginalFilename != "第二批.xlsx" {
		t.Fatalf("历史顺序错误: %s", entries[0].OriginalFilename)
	}
	if entries[1].RecordCount != 2 {
		t.Fatalf("记录数错误: %d", entries[1].RecordCount)
	}

	got, err := m.Get(entries[0].UploadTime)
	if err != nil {
		t.Fatalf("按时间戳读取失败: %v", err)
	}
	if got.OriginalFilename != "第二批.xlsx" || len(got.Data) != 1 {
		t.Fatalf("读取内容错误: %+v", got)
	}
}

func TestListEmpty(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("创建历史管理器失败: %v", err)
	}
	entries, err := m.List()
	if err != nil {
		t.Fatalf("列出历史失败: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("空目录应返回空列表: %v", entries)
	}
}
