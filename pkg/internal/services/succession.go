package services

import (
	"errors"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Succession describes what happened to a channel when its owner left.
type Succession struct {
	ChannelDeleted bool  `json:"channel_deleted"`
	NewOwner       *uint `json:"new_owner,omitempty"`
	GrantedAdmin   bool  `json:"granted_admin"`
}

// pickSuccessor chooses the next owner of channel, excluding the one who is leaving.
// Admins who are still members come first, ordered by when they were promoted;
// otherwise the earliest joined member is taken. The bool reports whether the
// successor already holds an admin role.
func pickSuccessor(tx *gorm.DB, channel models.Channel) (uint, bool, error) {
	members := tx.Model(&models.ChannelMember{}).Select("account_id").Where("channel_id = ?", channel.ID)

	var admin models.ChannelAdmin
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("channel_id = ? AND account_id <> ?", channel.ID, channel.OwnerID).
		Where("account_id IN (?)", members).
		Order("created_at ASC, id ASC").
		First(&admin).Error
	if err == nil {
		return admin.AccountID, true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, wrapStorage(err)
	}

	var member models.ChannelMember
	err = tx.
		Where("channel_id = ? AND account_id <> ?", channel.ID, channel.OwnerID).
		Order("created_at ASC, id ASC").
		First(&member).Error
	if err != nil {
		return 0, false, wrapLookup(err, "successor")
	}
	return member.AccountID, false, nil
}

// runSuccession removes the owner from channel and hands the channel over.
// The channel row must already be locked for update by tx.
func runSuccession(tx *gorm.DB, channel models.Channel) (Succession, error) {
	var result Succession
	leaving := channel.OwnerID

	count, err := countChannelRecord(tx, &models.ChannelMember{}, channel.ID)
	if err != nil {
		return result, err
	}
	if count <= 1 {
		if err := purgeChannel(tx, channel.ID); err != nil {
			return result, err
		}
		result.ChannelDeleted = true
		return result, nil
	}

	successor, wasAdmin, err := pickSuccessor(tx, channel)
	if err != nil {
		return result, err
	}

	if err := tx.Model(&models.Channel{}).
		Where("id = ?", channel.ID).
		Update("owner_id", successor).Error; err != nil {
		return result, wrapStorage(err)
	}
	if err := removeChannelMember(tx, channel.ID, leaving); err != nil {
		return result, err
	}
	if !wasAdmin {
		if err := grantChannelAdmin(tx, channel.ID, successor); err != nil {
			return result, err
		}
	}

	result.NewOwner = &successor
	result.GrantedAdmin = !wasAdmin

	if err := recordAudit(tx, channel.ID, leaving, &successor, models.AuditOwnerSuccession, map[string]any{
		"granted_admin": result.GrantedAdmin,
	}); err != nil {
		return result, err
	}

	return result, nil
}

func logSuccession(channelId, leaving uint, result Succession) {
	event := log.Info().Uint("channel", channelId).Uint("leaving", leaving)
	if result.ChannelDeleted {
		event.Msg("Owner was the last member, channel deleted.")
	} else if result.NewOwner != nil {
		event.Uint("owner", *result.NewOwner).Bool("granted_admin", result.GrantedAdmin).Msg("Channel ownership handed over.")
	}
}
