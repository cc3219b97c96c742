package services

import (
	"context"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Names and photo urls share the same bounds.
const shortTextRule = "min=1,max=49"

// bcrypt silently ignores anything past 72 bytes
const passwordRule = "min=1,max=72"

type ChannelTemplate struct {
	Name     string  `json:"name"`
	IsPublic bool    `json:"is_public"`
	Password *string `json:"password"`
	PhotoUrl *string `json:"photo_url"`
}

type ChannelPatch struct {
	Name     *string `json:"name"`
	IsPublic *bool   `json:"is_public"`
	Password *string `json:"password"`
	PhotoUrl *string `json:"photo_url"`
}

func validateField(value, rule, field string) error {
	if err := validate.Var(value, rule); err != nil {
		return newError(ErrValidation, "%s must be between 1 and %s characters", field, lo.Ternary(rule == passwordRule, "72", "49"))
	}
	return nil
}

func validateVisibility(isPublic, hasPassword bool) error {
	if !isPublic && hasPassword {
		return newError(ErrValidation, "private channels are invite-only and cannot carry a password")
	}
	return nil
}

// Key space of the per-owner advisory locks, spells "chan".
const ownerNameLockSpace = 0x6368616e

// lockOwnerNames holds off other name checks of owner until the transaction ends.
// Owners are not rows here, so postgres advisory locks stand in for a row lock.
func lockOwnerNames(tx *gorm.DB, owner uint) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return wrapStorage(tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", ownerNameLockSpace, int32(owner)).Error)
}

// ensureNameAvailable rejects a second channel of the same owner with the same name and password state.
// Must run inside the transaction that writes the name.
func ensureNameAvailable(tx *gorm.DB, owner uint, name string, protected bool, exclude ...uint) error {
	if err := lockOwnerNames(tx, owner); err != nil {
		return err
	}

	query := tx.Model(&models.Channel{}).
		Where("owner_id = ? AND name = ? AND is_protected = ?", owner, name, protected)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return wrapStorage(err)
	} else if count > 0 {
		return newError(ErrConflict, "you already own a channel named %q", name)
	}
	return nil
}

func NewChannel(ctx context.Context, user uint, template ChannelTemplate) (models.Channel, error) {
	var channel models.Channel

	if template.Password != nil && len(*template.Password) == 0 {
		template.Password = nil
	}
	if err := validateField(template.Name, shortTextRule, "name"); err != nil {
		return channel, err
	}
	if template.PhotoUrl != nil {
		if err := validateField(*template.PhotoUrl, shortTextRule, "photo url"); err != nil {
			return channel, err
		}
	}
	if template.Password != nil {
		if err := validateField(*template.Password, passwordRule, "password"); err != nil {
			return channel, err
		}
	}
	if err := validateVisibility(template.IsPublic, template.Password != nil); err != nil {
		return channel, err
	}

	channel = models.Channel{
		Name:     template.Name,
		IsPublic: template.IsPublic,
		PhotoUrl: template.PhotoUrl,
		OwnerID:  user,
	}
	if template.Password != nil {
		hash, err := Credentials.Hash(*template.Password)
		if err != nil {
			return channel, newError(ErrValidation, "unable to hash password: %v", err)
		}
		channel.Password = hash
		channel.IsProtected = true
	}

	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		if err := ensureNameAvailable(tx, user, channel.Name, channel.IsProtected); err != nil {
			return err
		}
		if err := tx.Create(&channel).Error; err != nil {
			return wrapStorage(err)
		}
		if err := addChannelMember(tx, channel.ID, user); err != nil {
			return err
		}
		return grantChannelAdmin(tx, channel.ID, user)
	})
	if err != nil {
		return models.Channel{}, err
	}

	log.Info().Uint("channel", channel.ID).Uint("owner", user).Msg("Channel created.")
	return channel, nil
}

// EditChannel applies patch as far as user is allowed to.
// Visibility and password belong to the owner; admins may only rename or change the photo.
func EditChannel(ctx context.Context, user uint, channelId uint, patch ChannelPatch) (models.Channel, error) {
	var channel models.Channel

	if patch.Name != nil {
		if err := validateField(*patch.Name, shortTextRule, "name"); err != nil {
			return channel, err
		}
	}
	if patch.PhotoUrl != nil {
		if err := validateField(*patch.PhotoUrl, shortTextRule, "photo url"); err != nil {
			return channel, err
		}
	}
	if patch.Password != nil && len(*patch.Password) > 0 {
		if err := validateField(*patch.Password, passwordRule, "password"); err != nil {
			return channel, err
		}
	}

	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if channel, err = lockChannel(tx, channelId, "UPDATE"); err != nil {
			return err
		}

		isOwner := channel.OwnerID == user
		isAdmin, err := isChannelAdmin(tx, channelId, user)
		if err != nil {
			return err
		}
		if !isOwner && !isAdmin {
			return newError(ErrAuthorization, "you must be the owner or an administrator of this channel")
		}

		visibilityChanged := patch.IsPublic != nil && *patch.IsPublic != channel.IsPublic
		passwordChanged := false
		if patch.Password != nil {
			if len(*patch.Password) == 0 {
				passwordChanged = channel.IsProtected
			} else {
				passwordChanged = !channel.IsProtected || !Credentials.Verify(channel.Password, *patch.Password)
			}
		}
		profileChanged := patch.Name != nil || patch.PhotoUrl != nil

		if (visibilityChanged || passwordChanged) && !isOwner && !profileChanged {
			return newError(ErrAuthorization, "only the owner can change visibility or password")
		}

		updates := map[string]any{}
		detail := map[string]any{}
		if patch.Name != nil && *patch.Name != channel.Name {
			updates["name"] = *patch.Name
			detail["name"] = *patch.Name
		}
		if patch.PhotoUrl != nil {
			updates["photo_url"] = *patch.PhotoUrl
			detail["photo_url"] = *patch.PhotoUrl
		}

		isPublic, protected := channel.IsPublic, channel.IsProtected
		if isOwner {
			if visibilityChanged {
				isPublic = *patch.IsPublic
				updates["is_public"] = isPublic
				detail["is_public"] = isPublic
			}
			if passwordChanged {
				if len(*patch.Password) == 0 {
					updates["password"] = ""
					protected = false
				} else {
					hash, err := Credentials.Hash(*patch.Password)
					if err != nil {
						return newError(ErrValidation, "unable to hash password: %v", err)
					}
					updates["password"] = hash
					protected = true
				}
				updates["is_protected"] = protected
				detail["is_protected"] = protected
			}
			if err := validateVisibility(isPublic, protected); err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			return nil
		}

		name := lo.Ternary(patch.Name != nil, lo.FromPtr(patch.Name), channel.Name)
		if err := ensureNameAvailable(tx, channel.OwnerID, name, protected, channel.ID); err != nil {
			return err
		}
		if err := tx.Model(&channel).Updates(updates).Error; err != nil {
			return wrapStorage(err)
		}
		if channel, err = findChannel(tx, channel.ID); err != nil {
			return err
		}
		return recordAudit(tx, channel.ID, user, nil, models.AuditChannelEdit, detail)
	})
	if err != nil {
		return models.Channel{}, err
	}

	return channel, nil
}

func DeleteChannel(ctx context.Context, user uint, channelId uint) error {
	err := writeTransaction(ctx, func(tx *gorm.DB) error {
		channel, err := lockChannel(tx, channelId, "UPDATE")
		if err != nil {
			return err
		}
		if channel.OwnerID != user {
			return newError(ErrAuthorization, "only the owner can delete this channel")
		}
		return purgeChannel(tx, channel.ID)
	})
	if err == nil {
		log.Info().Uint("channel", channelId).Uint("owner", user).Msg("Channel deleted.")
	}
	return err
}

// GetChannel loads a channel regardless of who is asking.
func GetChannel(ctx context.Context, channelId uint) (models.Channel, error) {
	return findChannel(readSource(ctx), channelId)
}

// GetAvailableChannel loads a channel user belongs to and is not banned from.
func GetAvailableChannel(ctx context.Context, channelId uint, user uint) (models.Channel, error) {
	tx := readSource(ctx)
	channel, err := findChannel(tx, channelId)
	if err != nil {
		return channel, err
	}

	if banned, err := isBannedFromChannel(tx, channelId, user); err != nil {
		return channel, err
	} else if banned {
		return channel, newError(ErrAuthorization, "you are banned from this channel")
	}
	if member, err := isChannelMember(tx, channelId, user); err != nil {
		return channel, err
	} else if !member {
		return channel, newError(ErrNotFound, "channel principal was not found")
	}

	return channel, nil
}

func ListAvailableChannel(ctx context.Context, user uint) ([]models.Channel, error) {
	tx := readSource(ctx)

	var channels []models.Channel
	if err := tx.
		Where("id IN (?)", tx.Model(&models.ChannelMember{}).Select("channel_id").Where("account_id = ?", user)).
		Where("id NOT IN (?)", tx.Model(&models.ChannelBan{}).Select("channel_id").Where("account_id = ?", user)).
		Order("id ASC").
		Find(&channels).Error; err != nil {
		return channels, wrapStorage(err)
	}

	return channels, nil
}

// ListPublicChannel lists discoverable channels, hiding the ones user is banned from.
func ListPublicChannel(ctx context.Context, user uint, take, offset int) ([]models.Channel, error) {
	tx := readSource(ctx)

	var channels []models.Channel
	if err := tx.
		Where("is_public = ?", true).
		Where("id NOT IN (?)", tx.Model(&models.ChannelBan{}).Select("channel_id").Where("account_id = ?", user)).
		Order("id ASC").
		Limit(lo.Clamp(take, 1, 100)).Offset(offset).
		Find(&channels).Error; err != nil {
		return channels, wrapStorage(err)
	}

	return channels, nil
}
