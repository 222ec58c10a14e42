package model

import (
	"time"
)

// DeviceSession 设备会话记录
type DeviceSession struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name           string     `json:"name" gorm:"type:varchar(128);index"`
	Host           string     `json:"host" gorm:"type:varchar(128);not null;index"`
	Port           int        `json:"port" gorm:"not null;default:22"`
	Username       string     `json:"username" gorm:"type:varchar(64)"`
	Platform       string     `json:"platform" gorm:"type:varchar(32);not null"`
	State          string     `json:"state" gorm:"type:varchar(32);not null"`
	FailedStep     string     `json:"failed_step,omitempty" gorm:"type:varchar(32)"`
	ErrorMsg       string     `json:"error_msg,omitempty" gorm:"type:text"`
	BasePrompt     string     `json:"base_prompt" gorm:"type:varchar(128)"`
	BasePattern    string     `json:"base_pattern" gorm:"type:varchar(256)"`
	CurrentContext string     `json:"current_context" gorm:"type:varchar(64)"`
	MultipleMode   bool       `json:"multiple_mode"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	LastActiveAt   time.Time  `json:"last_active_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (DeviceSession) TableName() string {
	return "device_sessions"
}

// 会话状态（与叠加层状态名一致，另加 closed）
const (
	SessionStateReady  = "ready"
	SessionStateFailed = "failed"
	SessionStateClosed = "closed"
)

// CommandLog 命令执行记录
type CommandLog struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SessionID     string    `json:"session_id" gorm:"type:varchar(64);not null;index"`
	Command       string    `json:"command" gorm:"type:text;not null"`
	ContextBefore string    `json:"context_before" gorm:"type:varchar(64)"`
	ContextAfter  string    `json:"context_after" gorm:"type:varchar(64)"`
	Refreshed     bool      `json:"refreshed"`
	OutputBytes   int       `json:"output_bytes"`
	OutputRef     string    `json:"output_ref,omitempty" gorm:"type:text"`
	ErrorMsg      string    `json:"error_msg,omitempty" gorm:"type:text"`
	Duration      int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (CommandLog) TableName() string {
	return "command_logs"
}
