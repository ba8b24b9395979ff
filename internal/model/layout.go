package model

// LayoutKind Excel 工作表的版面类型
//
// 数值与布局检测服务的返回值保持一致：
// 0=未知, 1=扁平式, 2=主表+子表, 3=分块式
type LayoutKind int

const (
	LayoutUnknown      LayoutKind = 0
	LayoutFlat         LayoutKind = 1
	LayoutMasterDetail LayoutKind = 2
	LayoutBlock        LayoutKind = 3
)

// ProcessOrder 各布局分组的固定处理顺序
// 扁平式和分块式成本低先处理，未知类型走分块路径兜底，主表+子表最后
var ProcessOrder = []LayoutKind{LayoutFlat, LayoutBlock, LayoutUnknown, LayoutMasterDetail}

// String 返回布局类型的可读名称
func (k LayoutKind) String() string {
	switch k {
	case LayoutFlat:
		return "flat"
	case LayoutMasterDetail:
		return "master_detail"
	case LayoutBlock:
		return "block"
	default:
		return "unknown"
	}
}

// ParseLayoutKind 将布局编号转换为 LayoutKind，不认识的编号归为未知
func ParseLayoutKind(n int) LayoutKind {
	switch n {
	case 1:
		return LayoutFlat
	case 2:
		return LayoutMasterDetail
	case 3:
		return LayoutBlock
	default:
		return LayoutUnknown
	}
}
