package services

import (
	"testing"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPublicChannel(t *testing.T) {
	setup(t)

	channel := createChannel(t, 1, "lobby", true)
	require.NoError(t, JoinChannel(bg, 2, channel.ID, nil))
	require.NoError(t, JoinChannel(bg, 2, channel.ID, nil))

	count, err := CountChannelMember(bg, channel.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	members, err := ListChannelMember(bg, channel.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, lo.Map(members, func(item models.ChannelMember, _ int) uint { return item.AccountID }))

	assert.ErrorIs(t, JoinChannel(bg, 2, 404, nil), ErrNotFound)
}

func TestJoinPrivateChannel(t *testing.T) {
	db := setup(t)

	channel := createChannel(t, 1, "devs", false)
	assert.ErrorIs(t, JoinChannel(bg, 2, channel.ID, nil), ErrAuthorization)

	_, err := AddChannelInvite(bg, 1, channel.ID, 2)
	assert.ErrorIs(t, err, ErrAuthorization)

	befriend(t, db, 2, 1)
	applied, err := AddChannelInvite(bg, 1, channel.ID, 2)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, identityOf(t, channel.ID, 2).IsInvited)

	require.NoError(t, JoinChannel(bg, 2, channel.ID, nil))
	identity := identityOf(t, channel.ID, 2)
	assert.True(t, identity.IsMember)
	assert.False(t, identity.IsInvited)
}

func TestJoinProtectedChannel(t *testing.T) {
	db := setup(t)

	channel := createChannel(t, 1, "vault", true, "secret")

	assert.ErrorIs(t, JoinChannel(bg, 2, channel.ID, nil), ErrAuthorization)
	assert.ErrorIs(t, JoinChannel(bg, 2, channel.ID, lo.ToPtr("")), ErrAuthorization)
	assert.ErrorIs(t, JoinChannel(bg, 2, channel.ID, lo.ToPtr("guess")), ErrAuthorization)
	require.NoError(t, JoinChannel(bg, 2, channel.ID, lo.ToPtr("secret")))

	// Invited users skip the password
	befriend(t, db, 1, 3)
	_, err := AddChannelInvite(bg, 1, channel.ID, 3)
	require.NoError(t, err)
	require.NoError(t, JoinChannel(bg, 3, channel.ID, nil))
}

func TestJoinWhileBanned(t *testing.T) {
	setup(t)

	channel := createChannel(t, 1, "lobby", true)
	joinAll(t, channel.ID, 2)
	_, err := BanChannelMember(bg, 1, channel.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, JoinChannel(bg, 2, channel.ID, nil), ErrAuthorization)
}

func TestQuitChannel(t *testing.T) {
	setup(t)

	channel := createChannel(t, 1, "lobby", true)
	joinAll(t, channel.ID, 2)

	t.Run("NonMemberIsNoop", func(t *testing.T) {
		result, err := QuitChannel(bg, 3, channel.ID)
		require.NoError(t, err)
		assert.Equal(t, Succession{}, result)
	})

	t.Run("MemberLeaves", func(t *testing.T) {
		result, err := LeaveChannel(bg, 2, channel.ID)
		require.NoError(t, err)
		assert.Equal(t, Succession{}, result)
		assert.False(t, identityOf(t, channel.ID, 2).IsMember)
	})

	t.Run("MissingChannel", func(t *testing.T) {
		_, err := QuitChannel(bg, 1, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
