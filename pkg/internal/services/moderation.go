package services

import (
	"context"
	"errors"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

const defaultMuteDuration = 5 * time.Minute

func muteDuration() time.Duration {
	if duration := viper.GetDuration("moderation.default_mute"); duration > 0 {
		return duration
	}
	return defaultMuteDuration
}

type targetPrecondition uint8

const (
	targetIsMember targetPrecondition = iota
	targetIsBanned
)

// checkModeration decides whether actor may act on target inside channelId.
// A false result without error means the action is moot and nothing should happen.
func checkModeration(tx *gorm.DB, channelId, actor, target uint, precondition targetPrecondition) (bool, error) {
	channel, err := lockChannel(tx, channelId, "SHARE")
	if err != nil {
		return false, err
	}

	if member, err := isChannelMember(tx, channelId, actor); err != nil {
		return false, err
	} else if !member {
		return false, nil
	}

	if actor == target {
		return false, newError(ErrAuthorization, "cannot act on yourself")
	}
	if target == channel.OwnerID {
		return false, newError(ErrAuthorization, "cannot act on the channel owner")
	}

	var present bool
	switch precondition {
	case targetIsBanned:
		present, err = isBannedFromChannel(tx, channelId, target)
	default:
		present, err = isChannelMember(tx, channelId, target)
	}
	if err != nil {
		return false, err
	} else if !present {
		return false, nil
	}

	if admin, err := isChannelAdmin(tx, channelId, actor); err != nil {
		return false, err
	} else if !admin {
		return false, newError(ErrAuthorization, "you must be an administrator of this channel")
	}

	return true, nil
}

// moderate runs action inside one transaction once checkModeration allows it.
func moderate(ctx context.Context, channelId, actor, target uint, precondition targetPrecondition, audit string, action func(tx *gorm.DB) (map[string]any, error)) (bool, error) {
	var applied bool

	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if applied, err = checkModeration(tx, channelId, actor, target, precondition); err != nil || !applied {
			return err
		}

		detail, err := action(tx)
		if err != nil {
			return err
		} else if detail == nil {
			applied = false
			return nil
		}
		return recordAudit(tx, channelId, actor, &target, audit, detail)
	})
	if err != nil {
		return false, err
	}

	if applied {
		log.Debug().Uint("channel", channelId).Uint("actor", actor).Uint("target", target).Str("action", audit).Msg("Moderation action applied.")
	}
	return applied, nil
}

// BanChannelMember kicks target and records a ban so they cannot join again.
func BanChannelMember(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditMemberBan, func(tx *gorm.DB) (map[string]any, error) {
		if err := removeChannelMember(tx, channelId, target); err != nil {
			return nil, err
		}
		ban := models.ChannelBan{ChannelID: channelId, AccountID: target, BannedByID: actor}
		if err := tx.Create(&ban).Error; err != nil {
			return nil, wrapStorage(err)
		}
		return map[string]any{}, nil
	})
}

func UnbanChannelMember(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsBanned, models.AuditMemberUnban, func(tx *gorm.DB) (map[string]any, error) {
		if _, err := deleteChannelRecord(tx, &models.ChannelBan{}, channelId, target); err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	})
}

func KickChannelMember(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditMemberKick, func(tx *gorm.DB) (map[string]any, error) {
		if err := removeChannelMember(tx, channelId, target); err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	})
}

// MuteChannelMember silences target until the given time, or for the default duration.
// A mute still in force is left alone, an expired one is replaced.
func MuteChannelMember(ctx context.Context, actor uint, channelId uint, target uint, until *time.Time) (bool, error) {
	now := time.Now()
	end := now.Add(muteDuration())
	if until != nil {
		if !until.After(now) {
			return false, newError(ErrValidation, "mute must end in the future")
		}
		end = *until
	}

	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditMemberMute, func(tx *gorm.DB) (map[string]any, error) {
		var mute models.ChannelMute
		err := tx.Where("channel_id = ? AND account_id = ?", channelId, target).First(&mute).Error
		if err == nil {
			if mute.IsActive(now) {
				return nil, nil
			}
			if err := tx.Delete(&mute).Error; err != nil {
				return nil, wrapStorage(err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapStorage(err)
		}

		mute = models.ChannelMute{ChannelID: channelId, AccountID: target, MutedEnd: end}
		if err := tx.Create(&mute).Error; err != nil {
			return nil, wrapStorage(err)
		}
		return map[string]any{"muted_end": end}, nil
	})
}

func UnmuteChannelMember(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditMemberUnmute, func(tx *gorm.DB) (map[string]any, error) {
		if affected, err := deleteChannelRecord(tx, &models.ChannelMute{}, channelId, target); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, nil
		}
		return map[string]any{}, nil
	})
}

func PromoteChannelAdmin(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditAdminPromote, func(tx *gorm.DB) (map[string]any, error) {
		if admin, err := isChannelAdmin(tx, channelId, target); err != nil {
			return nil, err
		} else if admin {
			return nil, nil
		}
		if err := grantChannelAdmin(tx, channelId, target); err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	})
}

func DemoteChannelAdmin(ctx context.Context, actor uint, channelId uint, target uint) (bool, error) {
	return moderate(ctx, channelId, actor, target, targetIsMember, models.AuditAdminDemote, func(tx *gorm.DB) (map[string]any, error) {
		if affected, err := deleteChannelRecord(tx, &models.ChannelAdmin{}, channelId, target); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, nil
		}
		return map[string]any{}, nil
	})
}

// GetActiveMute returns the mute of user in force right now.
// An expired record found on the way is deleted.
func GetActiveMute(ctx context.Context, channelId uint, user uint) (models.ChannelMute, bool, error) {
	var mute models.ChannelMute
	tx := readSource(ctx)

	if err := tx.Where("channel_id = ? AND account_id = ?", channelId, user).First(&mute).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mute, false, nil
		}
		return mute, false, wrapStorage(err)
	}

	if !mute.IsActive(time.Now()) {
		if err := writeSource(ctx).Delete(&models.ChannelMute{}, mute.ID).Error; err != nil {
			return mute, false, wrapStorage(err)
		}
		return mute, false, nil
	}

	return mute, true, nil
}

func IsMuted(ctx context.Context, channelId uint, user uint) (bool, error) {
	_, muted, err := GetActiveMute(ctx, channelId, user)
	return muted, err
}

func ListChannelBan(ctx context.Context, channelId uint) ([]models.ChannelBan, error) {
	var bans []models.ChannelBan
	if err := readSource(ctx).
		Where("channel_id = ?", channelId).
		Order("created_at DESC").
		Find(&bans).Error; err != nil {
		return bans, wrapStorage(err)
	}
	return bans, nil
}

// ListChannelMute lists the mutes still in force.
func ListChannelMute(ctx context.Context, channelId uint) ([]models.ChannelMute, error) {
	var mutes []models.ChannelMute
	if err := readSource(ctx).
		Where("channel_id = ? AND muted_end > ?", channelId, time.Now()).
		Order("muted_end ASC").
		Find(&mutes).Error; err != nil {
		return mutes, wrapStorage(err)
	}
	return mutes, nil
}

func ListChannelAuditLog(ctx context.Context, channelId uint, take int, offset int) ([]models.ChannelAuditLog, error) {
	var logs []models.ChannelAuditLog
	if err := readSource(ctx).
		Where("channel_id = ?", channelId).
		Order("created_at DESC, id DESC").
		Limit(lo.Clamp(take, 1, 100)).Offset(offset).
		Find(&logs).Error; err != nil {
		return logs, wrapStorage(err)
	}
	return logs, nil
}
