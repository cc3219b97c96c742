package services

import (
	"context"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
)

type FriendshipChecker interface {
	AreFriends(ctx context.Context, user, other uint) (bool, error)
}

// DatabaseFriendships reads the friendship relation replicated into the channel database.
type DatabaseFriendships struct{}

func (DatabaseFriendships) AreFriends(ctx context.Context, user, other uint) (bool, error) {
	var count int64
	if err := database.C.WithContext(ctx).
		Model(&models.AccountFriendship{}).
		Where("status = ?", models.FriendshipActive).
		Where("((account_id = ? AND related_id = ?) OR (account_id = ? AND related_id = ?))", user, other, other, user).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var Friends FriendshipChecker = DatabaseFriendships{}
