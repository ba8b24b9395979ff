package model

import "time"

// ProgressEvent 处理进度事件
// 由后台任务写入缓冲通道，前端轮询消费
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/info/warning/sheet_start/sheet_done/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewProgress 创建带当前时间戳的进度事件
func NewProgress(eventType, message string) ProgressEvent {
	return ProgressEvent{Type: eventType, Message: message, Timestamp: time.Now()}
}
