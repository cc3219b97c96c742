package services

import (
	"context"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ensureInviteOwner(channel models.Channel, actor uint) error {
	if channel.OwnerID != actor {
		return newError(ErrAuthorization, "only the owner can manage invites")
	}
	return nil
}

// AddChannelInvite lets the owner pre-authorize a friend to join the channel.
// Inviting someone who already is a member does nothing.
func AddChannelInvite(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	channel, err := findChannel(readSource(ctx), channelId)
	if err != nil {
		return false, err
	} else if err := ensureInviteOwner(channel, actor); err != nil {
		return false, err
	}
	if actor == target {
		return false, newError(ErrAuthorization, "cannot invite yourself")
	}

	// Friendship lives outside the channel tables, ask before holding any lock.
	if friends, err := Friends.AreFriends(ctx, actor, target); err != nil {
		return false, wrapStorage(err)
	} else if !friends {
		return false, newError(ErrAuthorization, "you can only invite your friends")
	}

	var applied bool
	err = writeTransaction(ctx, func(tx *gorm.DB) error {
		// Ownership may have moved on since the first look.
		channel, err := lockChannel(tx, channelId, "SHARE")
		if err != nil {
			return err
		} else if err := ensureInviteOwner(channel, actor); err != nil {
			return err
		}

		if banned, err := isBannedFromChannel(tx, channelId, target); err != nil {
			return err
		} else if banned {
			return newError(ErrConflict, "user is banned from this channel")
		}
		if member, err := isChannelMember(tx, channelId, target); err != nil {
			return err
		} else if member {
			return nil
		}

		invite := models.ChannelInvite{ChannelID: channelId, AccountID: target, InvitedByID: actor}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&invite)
		if result.Error != nil {
			return wrapStorage(result.Error)
		} else if result.RowsAffected == 0 {
			return nil
		}

		applied = true
		return recordAudit(tx, channelId, actor, &target, models.AuditInviteAdd, nil)
	})
	if err != nil {
		return false, err
	}

	if applied {
		log.Debug().Uint("channel", channelId).Uint("target", target).Msg("Channel invite added.")
	}
	return applied, nil
}

func RemoveChannelInvite(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	var applied bool
	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		channel, err := lockChannel(tx, channelId, "SHARE")
		if err != nil {
			return err
		} else if err := ensureInviteOwner(channel, actor); err != nil {
			return err
		}

		affected, err := deleteChannelRecord(tx, &models.ChannelInvite{}, channelId, target)
		if err != nil || affected == 0 {
			return err
		}

		applied = true
		return recordAudit(tx, channelId, actor, &target, models.AuditInviteRemove, nil)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func ListChannelInvite(ctx context.Context, channelId uint) ([]models.ChannelInvite, error) {
	var invites []models.ChannelInvite
	if err := readSource(ctx).
		Where("channel_id = ?", channelId).
		Order("created_at ASC, id ASC").
		Find(&invites).Error; err != nil {
		return invites, wrapStorage(err)
	}
	return invites, nil
}
