package models

// DeviceToken is a push registration token for one of a user's devices.
type DeviceToken struct {
	BaseModel

	UserID      string `gorm:"size:64;not null;uniqueIndex:idx_user_device_token,priority:1" json:"user_id"`
	DeviceToken string `gorm:"size:512;not null;uniqueIndex:idx_user_device_token,priority:2" json:"device_token"`
	Platform    string `gorm:"size:16" json:"platform,omitempty"`
}

// TableName pins the device token table.
func (DeviceToken) TableName() string {
	return "user_device_tokens"
}
