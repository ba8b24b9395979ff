package model

// SubmitRow OA 上报接口的单条记录
// 字段名遵循 OA 端约定的缩写：wxht=外销合同, skdw=收款单位,
// fymc=费用名称, bb=币别, je=金额, bz=备注
type SubmitRow struct {
	SplitID string `json:"split_id"`
	WXHT    string `json:"wxht"`
	SKDW    string `json:"skdw"`
	FYMC    string `json:"fymc"`
	BB      string `json:"bb"`
	JE      string `json:"je"`
	BZ      string `json:"bz"`
}

// SubmitResponse OA 上报接口的返回
// ErrorList 为上报失败的 split_id 列表，这些记录需保留待重新提交
type SubmitResponse struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	ErrorList []string `json:"error_list,omitempty"`
}

// RecordStatus 费用记录在审核流程中的状态
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"   // 待提交
	RecordSubmitted RecordStatus = "submitted" // 已提交成功
	RecordError     RecordStatus = "error"     // 提交失败，待修正重提
)
