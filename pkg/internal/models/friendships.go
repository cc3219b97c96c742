package models

type FriendshipStatus = int8

const (
	FriendshipPending = FriendshipStatus(iota)
	FriendshipActive
	FriendshipBlocked
)

// AccountFriendship mirrors the relation owned by the friends service.
// A friendship is stored once, either side may be AccountID.
type AccountFriendship struct {
	BaseModel

	AccountID uint             `json:"account_id" gorm:"index"`
	RelatedID uint             `json:"related_id" gorm:"index"`
	Status    FriendshipStatus `json:"status"`
}
