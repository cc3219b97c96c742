package models

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

const (
	CommandError = "error"

	CommandChannelSubscribe = "channels.subscribe"
	CommandChannelJoin      = "channels.join"
	CommandChannelLeave     = "channels.leave"
	CommandChannelBan       = "channels.ban"
	CommandChannelUnban     = "channels.unban"
	CommandChannelMute      = "channels.mute"
	CommandChannelUnmute    = "channels.unmute"
	CommandChannelKick      = "channels.kick"
	CommandAdminPromote     = "channels.admins.promote"
	CommandAdminDemote      = "channels.admins.demote"
	CommandMessageSend      = "messages.send"
)

const (
	EventChannelSubscribed = "channels.subscribed"
	EventChannelDelete     = "channels.delete"
	EventChannelUpdate     = "channels.update"
	EventOwnerChange       = "channels.owner.change"
	EventMemberJoin        = "channels.members.join"
	EventMemberLeave       = "channels.members.leave"
	EventMemberRemoved     = "channels.members.removed"
	EventMessageNew        = "messages.new"
)

// UnifiedCommand is the frame exchanged over the websocket gateway.
type UnifiedCommand struct {
	Action  string         `json:"w"`
	Message string         `json:"m,omitempty"`
	Payload map[string]any `json:"p,omitempty"`
}

func UnifiedCommandFromError(err error, kind string) UnifiedCommand {
	return UnifiedCommand{
		Action:  CommandError,
		Message: err.Error(),
		Payload: map[string]any{"kind": kind},
	}
}

func (v UnifiedCommand) Marshal() []byte {
	data, _ := jsoniter.Marshal(v)
	return data
}

func UnmarshalUnifiedCommand(raw []byte) (UnifiedCommand, error) {
	var cmd UnifiedCommand
	if err := jsoniter.Unmarshal(raw, &cmd); err != nil {
		return cmd, err
	}
	if len(cmd.Action) == 0 {
		return cmd, errors.New("command action is required")
	}
	return cmd, nil
}
