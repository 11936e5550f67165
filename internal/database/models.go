package database

import "time"

// SessionRecord is one row per brokered session lifetime.
type SessionRecord struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string     `gorm:"uniqueIndex;not null;size:64" json:"session_id"`
	Host      string     `gorm:"not null" json:"host"`
	Port      int        `gorm:"not null" json:"port"`
	Username  string     `gorm:"not null" json:"username"`
	StartedAt time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	EndReason string     `json:"end_reason"` // removed, expired, shutdown
}

// CommandRecord is one row per command forwarded to a session.
type CommandRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  string    `gorm:"not null;index;size:64" json:"session_id"`
	Mode       string    `gorm:"not null" json:"mode"` // one-shot or interactive
	Command    string    `gorm:"type:text" json:"command"`
	Succeeded  bool      `gorm:"not null" json:"succeeded"`
	ExecutedAt time.Time `gorm:"autoCreateTime" json:"executed_at"`
}
