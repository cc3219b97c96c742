package models

type Channel struct {
	BaseModel

	Name     string  `json:"name" gorm:"size:49;index"`
	IsPublic bool    `json:"is_public"`
	Password string  `json:"-"`
	PhotoUrl *string `json:"photo_url" gorm:"size:49"`
	OwnerID  uint    `json:"owner_id" gorm:"index"`

	// Set whenever Password is, the password itself never leaves the server
	IsProtected bool `json:"is_protected" gorm:"not null;default:false"`
}

type ChannelMember struct {
	BaseModel

	ChannelID uint `json:"channel_id" gorm:"uniqueIndex:idx_channel_member_pair"`
	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_channel_member_pair"`
}

// ChannelAdmin grants moderation power inside one channel.
// The owner of a channel always holds one of these.
type ChannelAdmin struct {
	BaseModel

	ChannelID uint `json:"channel_id" gorm:"uniqueIndex:idx_channel_admin_pair"`
	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_channel_admin_pair"`
}
