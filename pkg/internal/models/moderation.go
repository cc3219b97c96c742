package models

import (
	"time"

	"gorm.io/datatypes"
)

type ChannelBan struct {
	BaseModel

	ChannelID  uint `json:"channel_id" gorm:"uniqueIndex:idx_channel_ban_pair"`
	AccountID  uint `json:"account_id" gorm:"uniqueIndex:idx_channel_ban_pair"`
	BannedByID uint `json:"banned_by_id"`
}

type ChannelMute struct {
	BaseModel

	ChannelID uint      `json:"channel_id" gorm:"uniqueIndex:idx_channel_mute_pair"`
	AccountID uint      `json:"account_id" gorm:"uniqueIndex:idx_channel_mute_pair"`
	MutedEnd  time.Time `json:"muted_end" gorm:"index"`
}

func (v ChannelMute) IsActive(now time.Time) bool {
	return now.Before(v.MutedEnd)
}

type ChannelInvite struct {
	BaseModel

	ChannelID   uint `json:"channel_id" gorm:"uniqueIndex:idx_channel_invite_pair"`
	AccountID   uint `json:"account_id" gorm:"uniqueIndex:idx_channel_invite_pair"`
	InvitedByID uint `json:"invited_by_id"`
}

const (
	AuditChannelEdit     = "channel.edit"
	AuditMemberBan       = "member.ban"
	AuditMemberUnban     = "member.unban"
	AuditMemberMute      = "member.mute"
	AuditMemberUnmute    = "member.unmute"
	AuditMemberKick      = "member.kick"
	AuditAdminPromote    = "admin.promote"
	AuditAdminDemote     = "admin.demote"
	AuditOwnerSuccession = "owner.succession"
	AuditInviteAdd       = "invite.add"
	AuditInviteRemove    = "invite.remove"
)

type ChannelAuditLog struct {
	BaseModel

	ChannelID uint              `json:"channel_id" gorm:"index"`
	ActorID   uint              `json:"actor_id"`
	TargetID  *uint             `json:"target_id"`
	Action    string            `json:"action"`
	Detail    datatypes.JSONMap `json:"detail"`
}
