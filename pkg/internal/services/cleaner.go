package services

import (
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

// DoAutoDatabaseCleanup sweeps mutes that already ran out.
func DoAutoDatabaseCleanup() {
	deadline := time.Now()
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up expired mutes...")

	tx := database.C.Where("muted_end <= ?", deadline).Delete(&models.ChannelMute{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when running database cleanup...")
		return
	}

	log.Debug().Int64("affected", tx.RowsAffected).Msg("Clean up expired mutes accomplished.")
}
