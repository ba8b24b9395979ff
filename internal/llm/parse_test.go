package llm

import (
	"testing"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

func TestParseLayoutReply(t *testing.T) {
	raw := `{"index_1": 1, "index_2": "3", "index_3": 2}`
	kinds := ParseLayoutReply(raw, 4)

	want := []model.LayoutKind{model.LayoutFlat, model.LayoutBlock, model.LayoutMasterDetail, model.LayoutUnknown}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("kinds[%d]=%v, want %v", i, kinds[i], k)
		}
	}
}

func TestParseLayoutReplyMalformed(t *testing.T) {
	// 整体不可解析时所有 sheet 归为未知布局，不报错
	kinds := ParseLayoutReply("抱歉，我无法识别这些图片", 3)
	for i, k := range kinds {
		if k != model.LayoutUnknown {
			t.Fatalf("kinds[%d]=%v, 应为未知布局", i, k)
		}
	}
}

func TestParseLayoutReplyCodeFence(t *testing.T) {
	raw := "```json\n{\"index_1\": 3}\n```"
	kinds := ParseLayoutReply(raw, 1)
	if kinds[0] != model.LayoutBlock {
		t.Fatalf("kinds[0]=%v, want block", kinds[0])
	}
}

func TestParseLayoutReplyUncoercible(t *testing.T) {
	raw := `{"index_1": "flat", "index_2": 1}`
	kinds := ParseLayoutReply(raw, 2)
	if kinds[0] != model.LayoutUnknown {
		t.Fatalf("无法转整数的条目应归为未知, got %v", kinds[0])
	}
	if kinds[1] != model.LayoutFlat {
		t.Fatalf("kinds[1]=%v, want flat", kinds[1])
	}
}

func TestParseHeaderIndex(t *testing.T) {
	idx, err := ParseHeaderIndex("2", 20)
	if err != nil {
		t.Fatalf("ParseHeaderIndex 出错: %v", err)
	}
	if idx != 2 {
		t.Fatalf("idx=%d, want 2", idx)
	}
}

func TestParseHeaderIndexOutOfRange(t *testing.T) {
	if _, err := ParseHeaderIndex("25", 20); err == nil {
		t.Fatalf("超出行数范围的表头索引应报错")
	}
	if _, err := ParseHeaderIndex("-1", 20); err == nil {
		t.Fatalf("负数表头索引应报错")
	}
	if _, err := ParseHeaderIndex("第3行", 20); err == nil {
		t.Fatalf("非整数回复应报错")
	}
}

func TestParseFeeDetails(t *testing.T) {
	raw := `{"费用明细": [{"外销合同": "N25MU05001", "船代公司": "中外运", "费用名称": "订舱费", "货币代码": "CNY", "金额": "200.00", "备注": ""}]}`
	records, err := ParseFeeDetails(raw)
	if err != nil {
		t.Fatalf("ParseFeeDetails 出错: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("记录数=%d, want 1", len(records))
	}
	if records[0].FeeName != "订舱费" {
		t.Fatalf("费用名称=%q", records[0].FeeName)
	}
}

func TestParseFeeDetailsMissingTopKey(t *testing.T) {
	// 顶层没有费用明细键时，整个对象包装为单条记录
	raw := `{"外销合同": "ABC123", "费用名称": "THC", "金额": "685.00"}`
	records, err := ParseFeeDetails(raw)
	if err != nil {
		t.Fatalf("ParseFeeDetails 出错: %v", err)
	}
	if len(records) != 1 || records[0].Contract != "ABC123" {
		t.Fatalf("包装结果不正确: %+v", records)
	}
}

func TestParseFeeDetailsBareArray(t *testing.T) {
	raw := `[{"费用名称": "港杂费", "金额": "746.00"}, {"费用名称": "单证费", "金额": "430.00"}]`
	records, err := ParseFeeDetails(raw)
	if err != nil {
		t.Fatalf("ParseFeeDetails 出错: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("记录数=%d, want 2", len(records))
	}
}
