package pipeline

import (
	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// RouteSheets 按版式把工作表排成处理顺序
// 先平铺表，再分块表，再未识别的，最后主从表；同一版式内保持原顺序
func RouteSheets(sheets []model.SheetInfo) []model.SheetInfo {
	buckets := make(map[model.LayoutKind][]model.SheetInfo)
	for _, s := range sheets {
		buckets[s.Layout] = append(buckets[s.Layout], s)
	}

	ordered := make([]model.SheetInfo, 0, len(sheets))
	for _, kind := range model.ProcessOrder {
		ordered = append(ordered, buckets[kind]...)
	}
	return ordered
}
