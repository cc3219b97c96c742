package database

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Channel{},
	&models.ChannelMember{},
	&models.ChannelAdmin{},
	&models.ChannelBan{},
	&models.ChannelMute{},
	&models.ChannelInvite{},
	&models.ChannelAuditLog{},
	&models.AccountFriendship{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
