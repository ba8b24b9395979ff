package store

import (
	"path/filepath"
	"testing"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []model.FeeRecord {
	return []model.FeeRecord{
		{Contract: "SC2025-001", Forwarder: "某船代", FeeName: "海运费", Currency: "USD", Amount: "1200.00", SourceFile: "a.xlsx"},
		{Contract: "SC2025-002", Forwarder: "某船代", FeeName: "港杂费", Currency: "CNY", Amount: "350.00", SourceFile: "a.xlsx"},
		{Contract: "SC2025-003", FeeName: "报关费", Currency: "CNY", Amount: "200.00", SourceFile: "b.xlsx"},
	}
}

func TestCreateBatchAndList(t *testing.T) {
	s := newTestStore(t)

	batchID, err := s.CreateBatch("测试批次", sampleRecords())
	if err != nil {
		t.Fatalf("创建批次失败: %v", err)
	}

	records, err := s.ListBatchRecords(batchID)
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("期望 3 条记录, 实际 %d", len(records))
	}

	seen := make(map[string]bool)
	for _, r := range records {
		if r.SplitID == "" {
			t.Fatal("记录缺少 split_id")
		}
		if seen[r.SplitID] {
			t.Fatalf("split_id 重复: %s", r.SplitID)
		}
		seen[r.SplitID] = true
		if r.Status != string(model.RecordPending) {
			t.Fatalf("新记录状态应为 pending, 实际 %s", r.Status)
		}
	}
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	s := newTestStore(t)
	batchID, err := s.CreateBatch("测试批次", sampleRecords())
	if err != nil {
		t.Fatalf("创建批次失败: %v", err)
	}
	records, err := s.ListBatchRecords(batchID)
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}

	edited := records[0].FeeRecord
	edited.Amount = "1500.00"
	if err := s.UpdateRecord(records[0].ID, edited); err != nil {
		t.Fatalf("更新记录失败: %v", err)
	}

	if err := s.DeleteRecord(records[1].ID); err != nil {
		t.Fatalf("删除记录失败: %v", err)
	}

	after, err := s.ListBatchRecords(batchID)
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("删除后期望 2 条记录, 实际 %d", len(after))
	}
	if after[0].Amount != "1500.00" {
		t.Fatalf("金额未更新: %s", after[0].Amount)
	}

	if err := s.DeleteRecord(99999); err == nil {
		t.Fatal("删除不存在的记录应返回错误")
	}
}

func TestMarkStatusAndListSubmittable(t *testing.T) {
	s := newTestStore(t)
	batchID, err := s.CreateBatch("测试批次", sampleRecords())
	if err != nil {
		t.Fatalf("创建批次失败: %v", err)
	}
	records, err := s.ListBatchRecords(batchID)
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}

	// 第一条提交成功，第二条提交失败
	if err := s.MarkStatus([]string{records[0].SplitID}, model.RecordSubmitted); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}
	if err := s.MarkStatus([]string{records[1].SplitID}, model.RecordError); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}

	submittable, err := s.ListSubmittable(batchID)
	if err != nil {
		t.Fatalf("查询待提交记录失败: %v", err)
	}
	// 失败的和未提交的都应可重新提交
	if len(submittable) != 2 {
		t.Fatalf("期望 2 条可提交记录, 实际 %d", len(submittable))
	}
	for _, r := range submittable {
		if r.Status == string(model.RecordSubmitted) {
			t.Fatalf("已提交成功的记录不应出现在待提交列表: %+v", r)
		}
	}
}
