package gateway

import (
	"context"
	"testing"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database/dbtest"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func command(action string, payload map[string]any) models.UnifiedCommand {
	return models.UnifiedCommand{Action: action, Payload: payload}
}

type session struct {
	hub    *Hub
	conns  map[uint]*fakeConn
	client map[uint]*Client
}

func newSession(t *testing.T, users ...uint) *session {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.Disabled)
	dbtest.Use(t)

	s := &session{hub: NewHub(nil), conns: map[uint]*fakeConn{}, client: map[uint]*Client{}}
	for _, user := range users {
		s.conns[user] = &fakeConn{}
		s.client[user] = s.hub.Register(user, s.conns[user])
	}
	return s
}

func (s *session) send(user uint, task models.UnifiedCommand) *models.UnifiedCommand {
	return s.hub.DealCommand(context.Background(), s.client[user], task)
}

func kindOf(reply *models.UnifiedCommand) any {
	if reply == nil || reply.Action != models.CommandError {
		return nil
	}
	return reply.Payload["kind"]
}

func TestDealUnknownCommand(t *testing.T) {
	s := newSession(t, 1)

	reply := s.send(1, command("channels.explode", nil))
	require.NotNil(t, reply)
	assert.Equal(t, models.CommandError, reply.Action)
	assert.Equal(t, "not_found", kindOf(reply))

	reply = s.send(1, command(models.CommandChannelJoin, nil))
	assert.Equal(t, "validation", kindOf(reply))
}

func TestDealJoinAndSubscribe(t *testing.T) {
	s := newSession(t, 1, 2)

	channel, err := services.NewChannel(context.Background(), 1, services.ChannelTemplate{Name: "lobby", IsPublic: true})
	require.NoError(t, err)
	payload := map[string]any{"channel_id": channel.ID}

	reply := s.send(2, command(models.CommandChannelSubscribe, payload))
	assert.Equal(t, "not_found", kindOf(reply))

	reply = s.send(1, command(models.CommandChannelSubscribe, payload))
	require.NotNil(t, reply)
	assert.Equal(t, models.EventChannelSubscribed, reply.Action)

	reply = s.send(2, command(models.CommandChannelJoin, payload))
	require.NotNil(t, reply)
	assert.Equal(t, true, reply.Payload["applied"])
	assert.True(t, s.hub.IsSubscribed(channel.ID, 2))
	assert.Contains(t, s.conns[1].actions(), models.EventMemberJoin)
}

func TestDealModeration(t *testing.T) {
	s := newSession(t, 1, 2, 3)

	channel, err := services.NewChannel(context.Background(), 1, services.ChannelTemplate{Name: "lobby", IsPublic: true})
	require.NoError(t, err)
	payload := map[string]any{"channel_id": channel.ID}
	for _, user := range []uint{1, 2, 3} {
		if user != 1 {
			require.Nil(t, kindOf(s.send(user, command(models.CommandChannelJoin, payload))))
		} else {
			s.send(user, command(models.CommandChannelSubscribe, payload))
		}
	}

	t.Run("MemberCannotModerate", func(t *testing.T) {
		reply := s.send(2, command(models.CommandChannelKick, map[string]any{"channel_id": channel.ID, "target": 3}))
		assert.Equal(t, "authorization", kindOf(reply))
	})

	t.Run("TargetIsRequired", func(t *testing.T) {
		reply := s.send(1, command(models.CommandChannelBan, payload))
		assert.Equal(t, "validation", kindOf(reply))
	})

	t.Run("MutedMemberIsSilenced", func(t *testing.T) {
		reply := s.send(1, command(models.CommandChannelMute, map[string]any{"channel_id": channel.ID, "target": 3}))
		require.NotNil(t, reply)
		assert.Equal(t, true, reply.Payload["applied"])

		reply = s.send(3, command(models.CommandMessageSend, map[string]any{"channel_id": channel.ID, "content": "hi"}))
		assert.Equal(t, "authorization", kindOf(reply))

		reply = s.send(2, command(models.CommandMessageSend, map[string]any{"channel_id": channel.ID, "content": "hi"}))
		assert.Nil(t, reply)
		assert.Equal(t, models.EventMessageNew, s.conns[3].last().Action)
		assert.Equal(t, "hi", s.conns[3].last().Payload["content"])
	})

	t.Run("BanEvicts", func(t *testing.T) {
		reply := s.send(1, command(models.CommandChannelBan, map[string]any{"channel_id": channel.ID, "target": 2}))
		require.NotNil(t, reply)
		assert.Equal(t, true, reply.Payload["applied"])

		assert.False(t, s.hub.IsSubscribed(channel.ID, 2))
		assert.Contains(t, s.conns[2].actions(), models.EventMemberRemoved)
		assert.Equal(t, models.CommandChannelBan, s.conns[1].last().Action)

		reply = s.send(2, command(models.CommandMessageSend, map[string]any{"channel_id": channel.ID, "content": "let me in"}))
		assert.Equal(t, "authorization", kindOf(reply))
	})
}

func TestDealLeaveClosesEmptyRoom(t *testing.T) {
	s := newSession(t, 1)

	channel, err := services.NewChannel(context.Background(), 1, services.ChannelTemplate{Name: "solo", IsPublic: false})
	require.NoError(t, err)
	payload := map[string]any{"channel_id": channel.ID}

	s.send(1, command(models.CommandChannelSubscribe, payload))
	reply := s.send(1, command(models.CommandChannelLeave, payload))
	require.NotNil(t, reply)
	assert.Equal(t, models.CommandChannelLeave, reply.Action)

	// Evicted before the room closes, so the leaver is not told twice
	assert.NotContains(t, s.conns[1].actions(), models.EventChannelDelete)
	assert.False(t, s.hub.IsSubscribed(channel.ID, 1))
}
