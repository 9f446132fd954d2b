package domain

import "time"

// IMAPSettings IMAP 连接参数
type IMAPSettings struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
}

// Account 邮箱账户
type Account struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Email        string       `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string       `json:"name" gorm:"type:varchar(255)"`
	Provider     string       `json:"provider" gorm:"type:varchar(32)"`
	IMAPSettings IMAPSettings `json:"imapSettings" gorm:"embedded;embeddedPrefix:imap_"`
	// IMAP 凭据只用于真实同步，不返回给前端
	Username    string     `json:"-" gorm:"type:varchar(255)"`
	Password    string     `json:"-" gorm:"type:varchar(255)"`
	LastSynced  *time.Time `json:"lastSynced,omitempty"`
	IsConnected bool       `json:"isConnected" gorm:"default:false"`
	CreatedAt   time.Time  `json:"-"`
}

// AddAccountInput 添加账户请求
type AddAccountInput struct {
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Provider     string        `json:"provider"`
	IMAPSettings *IMAPSettings `json:"imapSettings"`
	Username     string        `json:"username"`
	Password     string        `json:"password"`
}
