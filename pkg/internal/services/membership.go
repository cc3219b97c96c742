package services

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row-set queries of the membership store. Everything here runs on the caller's
// handle so that multi-step operations stay inside one transaction.

func findChannel(tx *gorm.DB, channelId uint) (models.Channel, error) {
	var channel models.Channel
	if err := tx.Where("id = ?", channelId).First(&channel).Error; err != nil {
		return channel, wrapLookup(err, "channel")
	}
	return channel, nil
}

// lockChannel reads the channel row with a row lock held until the transaction ends.
// Strength is "UPDATE" for owner changes and deletion, "SHARE" for the rest.
func lockChannel(tx *gorm.DB, channelId uint, strength string) (models.Channel, error) {
	return findChannel(tx.Clauses(clause.Locking{Strength: strength}), channelId)
}

func hasChannelRecord(tx *gorm.DB, model any, channelId, user uint) (bool, error) {
	var count int64
	if err := tx.Model(model).
		Where("channel_id = ? AND account_id = ?", channelId, user).
		Count(&count).Error; err != nil {
		return false, wrapStorage(err)
	}
	return count > 0, nil
}

func isChannelMember(tx *gorm.DB, channelId, user uint) (bool, error) {
	return hasChannelRecord(tx, &models.ChannelMember{}, channelId, user)
}

func isChannelAdmin(tx *gorm.DB, channelId, user uint) (bool, error) {
	return hasChannelRecord(tx, &models.ChannelAdmin{}, channelId, user)
}

func isBannedFromChannel(tx *gorm.DB, channelId, user uint) (bool, error) {
	return hasChannelRecord(tx, &models.ChannelBan{}, channelId, user)
}

func isInvitedToChannel(tx *gorm.DB, channelId, user uint) (bool, error) {
	return hasChannelRecord(tx, &models.ChannelInvite{}, channelId, user)
}

func countChannelRecord(tx *gorm.DB, model any, channelId uint) (int64, error) {
	var count int64
	if err := tx.Model(model).Where("channel_id = ?", channelId).Count(&count).Error; err != nil {
		return 0, wrapStorage(err)
	}
	return count, nil
}

func deleteChannelRecord(tx *gorm.DB, model any, channelId, user uint) (int64, error) {
	result := tx.Where("channel_id = ? AND account_id = ?", channelId, user).Delete(model)
	return result.RowsAffected, wrapStorage(result.Error)
}

func addChannelMember(tx *gorm.DB, channelId, user uint) error {
	member := models.ChannelMember{ChannelID: channelId, AccountID: user}
	return wrapStorage(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error)
}

func grantChannelAdmin(tx *gorm.DB, channelId, user uint) error {
	admin := models.ChannelAdmin{ChannelID: channelId, AccountID: user}
	return wrapStorage(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&admin).Error)
}

// removeChannelMember drops both the membership and the admin role of user.
func removeChannelMember(tx *gorm.DB, channelId, user uint) error {
	if _, err := deleteChannelRecord(tx, &models.ChannelAdmin{}, channelId, user); err != nil {
		return err
	}
	if _, err := deleteChannelRecord(tx, &models.ChannelMember{}, channelId, user); err != nil {
		return err
	}
	return nil
}

// purgeChannel removes the channel and every row scoped to it.
func purgeChannel(tx *gorm.DB, channelId uint) error {
	for _, model := range []any{
		&models.ChannelAdmin{},
		&models.ChannelMember{},
		&models.ChannelBan{},
		&models.ChannelMute{},
		&models.ChannelInvite{},
		&models.ChannelAuditLog{},
	} {
		if err := tx.Where("channel_id = ?", channelId).Delete(model).Error; err != nil {
			return wrapStorage(err)
		}
	}
	return wrapStorage(tx.Delete(&models.Channel{}, channelId).Error)
}

func recordAudit(tx *gorm.DB, channelId, actor uint, target *uint, action string, detail map[string]any) error {
	entry := models.ChannelAuditLog{
		ChannelID: channelId,
		ActorID:   actor,
		TargetID:  target,
		Action:    action,
		Detail:    datatypes.JSONMap(lo.Ternary(detail == nil, map[string]any{}, detail)),
	}
	return wrapStorage(tx.Create(&entry).Error)
}

// writeTransaction runs fn as one unit that survives the caller going away.
func writeTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return wrapStorage(writeSource(ctx).Transaction(fn))
}

func readSource(ctx context.Context) *gorm.DB {
	return database.C.WithContext(ctx)
}

func writeSource(ctx context.Context) *gorm.DB {
	return database.C.WithContext(context.WithoutCancel(ctx))
}

type ChannelIdentity struct {
	ChannelID  uint       `json:"channel_id"`
	AccountID  uint       `json:"account_id"`
	IsOwner    bool       `json:"is_owner"`
	IsAdmin    bool       `json:"is_admin"`
	IsMember   bool       `json:"is_member"`
	IsBanned   bool       `json:"is_banned"`
	IsInvited  bool       `json:"is_invited"`
	MutedUntil *time.Time `json:"muted_until"`
}

// GetChannelIdentity collects every role fact user holds in the channel.
func GetChannelIdentity(ctx context.Context, channelId, user uint) (ChannelIdentity, error) {
	identity := ChannelIdentity{ChannelID: channelId, AccountID: user}

	tx := readSource(ctx)
	channel, err := findChannel(tx, channelId)
	if err != nil {
		return identity, err
	}
	identity.IsOwner = channel.OwnerID == user

	if identity.IsMember, err = isChannelMember(tx, channelId, user); err != nil {
		return identity, err
	}
	if identity.IsAdmin, err = isChannelAdmin(tx, channelId, user); err != nil {
		return identity, err
	}
	if identity.IsBanned, err = isBannedFromChannel(tx, channelId, user); err != nil {
		return identity, err
	}
	if identity.IsInvited, err = isInvitedToChannel(tx, channelId, user); err != nil {
		return identity, err
	}

	if mute, ok, err := GetActiveMute(ctx, channelId, user); err != nil {
		return identity, err
	} else if ok {
		identity.MutedUntil = &mute.MutedEnd
	}

	return identity, nil
}
