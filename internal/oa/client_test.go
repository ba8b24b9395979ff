package oa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

func TestUpload(t *testing.T) {
	var gotAuth string
	var gotRows []model.SubmitRow

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/internal/cost_ident/upload_oa" {
			t.Errorf("请求路径错误: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Rows []model.SubmitRow `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		gotRows = req.Rows
		json.NewEncoder(w).Encode(model.SubmitResponse{Code: 0, Message: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "/api/internal/cost_ident/upload_oa", "test-token")
	rows := []model.SubmitRow{
		{SplitID: "s1", WXHT: "SC2025-001", FYMC: "海运费", BB: "USD", JE: "1200.00"},
	}
	resp, err := c.Upload(context.Background(), rows)
	if err != nil {
		t.Fatalf("上报失败: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("返回码错误: %d", resp.Code)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("鉴权头错误: %s", gotAuth)
	}
	if len(gotRows) != 1 || gotRows[0].SplitID != "s1" {
		t.Fatalf("上报数据错误: %+v", gotRows)
	}
}

func TestUploadPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.SubmitResponse{
			Code: 0, Message: "部分失败", ErrorList: []string{"s2"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "/api/internal/cost_ident/upload_oa", "t")
	rows := []model.SubmitRow{{SplitID: "s1"}, {SplitID: "s2"}}
	resp, err := c.Upload(context.Background(), rows)
	if err != nil {
		t.Fatalf("部分失败不应返回错误: %v", err)
	}
	if len(resp.ErrorList) != 1 || resp.ErrorList[0] != "s2" {
		t.Fatalf("失败列表错误: %v", resp.ErrorList)
	}
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.SubmitResponse{Code: 401, Message: "token 无效"})
	}))
	defer srv.Close()

	c := New(srv.URL, "/api/internal/cost_ident/upload_oa", "bad")
	if _, err := c.Upload(context.Background(), []model.SubmitRow{{SplitID: "s1"}}); err == nil {
		t.Fatal("业务码非 0 应返回错误")
	}
}

func TestUploadEmpty(t *testing.T) {
	c := New("http://example.invalid", "/x", "t")
	if _, err := c.Upload(context.Background(), nil); err == nil {
		t.Fatal("空记录应返回错误")
	}
}

func TestBuildRows(t *testing.T) {
	records := []model.FeeRecord{
		{Contract: "SC1", Forwarder: "船代", FeeName: "海运费", Currency: "USD", Amount: "100.00", Note: "备注"},
	}
	rows := BuildRows(records, []string{"s1"})
	if len(rows) != 1 {
		t.Fatalf("行数错误: %d", len(rows))
	}
	r := rows[0]
	if r.SplitID != "s1" || r.WXHT != "SC1" || r.SKDW != "船代" || r.FYMC != "海运费" ||
		r.BB != "USD" || r.JE != "100.00" || r.BZ != "备注" {
		t.Fatalf("字段映射错误: %+v", r)
	}
}
