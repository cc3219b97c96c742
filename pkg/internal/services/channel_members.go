package services

import (
	"context"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func CountChannelMember(ctx context.Context, channelId uint) (int64, error) {
	return countChannelRecord(readSource(ctx), &models.ChannelMember{}, channelId)
}

func ListChannelMember(ctx context.Context, channelId uint, take int, offset int) ([]models.ChannelMember, error) {
	var members []models.ChannelMember

	if err := readSource(ctx).
		Limit(lo.Clamp(take, 1, 100)).Offset(offset).
		Where("channel_id = ?", channelId).
		Order("created_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return members, wrapStorage(err)
	}

	return members, nil
}

func ListChannelAdmin(ctx context.Context, channelId uint) ([]models.ChannelAdmin, error) {
	var admins []models.ChannelAdmin

	if err := readSource(ctx).
		Where("channel_id = ?", channelId).
		Order("created_at ASC, id ASC").
		Find(&admins).Error; err != nil {
		return admins, wrapStorage(err)
	}

	return admins, nil
}

// JoinChannel adds user to the channel.
// Banned users are refused, private channels need an invite and protected ones
// need the password unless user was invited. Joining twice is a no-op.
func JoinChannel(ctx context.Context, user uint, channelId uint, password *string) error {
	return writeTransaction(ctx, func(tx *gorm.DB) error {
		channel, err := lockChannel(tx, channelId, "SHARE")
		if err != nil {
			return err
		}

		if banned, err := isBannedFromChannel(tx, channelId, user); err != nil {
			return err
		} else if banned {
			return newError(ErrAuthorization, "you are banned from this channel")
		}

		if member, err := isChannelMember(tx, channelId, user); err != nil {
			return err
		} else if member {
			return nil
		}

		invited, err := isInvitedToChannel(tx, channelId, user)
		if err != nil {
			return err
		}

		if !channel.IsPublic && channel.OwnerID != user && !invited {
			return newError(ErrAuthorization, "this channel is invite-only")
		}
		if channel.IsProtected && !invited {
			if password == nil || len(*password) == 0 {
				return newError(ErrAuthorization, "this channel requires a password")
			} else if !Credentials.Verify(channel.Password, *password) {
				return newError(ErrAuthorization, "wrong channel password")
			}
		}

		if err := addChannelMember(tx, channelId, user); err != nil {
			return err
		}
		if invited {
			if _, err := deleteChannelRecord(tx, &models.ChannelInvite{}, channelId, user); err != nil {
				return err
			}
		}
		return nil
	})
}

// QuitChannel removes user from the channel. When user owns it the channel
// is handed to a successor, or deleted if nobody else is left.
func QuitChannel(ctx context.Context, user uint, channelId uint) (Succession, error) {
	var result Succession

	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		channel, err := lockChannel(tx, channelId, "UPDATE")
		if err != nil {
			return err
		}

		if member, err := isChannelMember(tx, channelId, user); err != nil {
			return err
		} else if !member {
			return nil
		}

		if channel.OwnerID == user {
			result, err = runSuccession(tx, channel)
			return err
		}
		return removeChannelMember(tx, channelId, user)
	})
	if err != nil {
		return Succession{}, err
	}

	logSuccession(channelId, user, result)
	return result, nil
}

// LeaveChannel is QuitChannel under the name the API exposes.
func LeaveChannel(ctx context.Context, user uint, channelId uint) (Succession, error) {
	return QuitChannel(ctx, user, channelId)
}
