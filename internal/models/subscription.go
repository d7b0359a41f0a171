package models

// Subscription is one address receiving the daily email.
// Email and Code never change after insert.
type Subscription struct {
	Base
	Email          string `json:"email"           gorm:"size:191;uniqueIndex;not null"`
	Code           string `json:"-"               gorm:"size:64;uniqueIndex;not null"`
	Verified       bool   `json:"verified"        gorm:"index:idx_verified_offset;not null;default:false"`
	TimezoneOffset int    `json:"timezone_offset" gorm:"index:idx_verified_offset;not null;default:0"`
}

func (Subscription) TableName() string { return "subscriptions" }
