package gateway

import (
	"context"

	"TeamWork/logger"
	"TeamWork/module/chat"
	chatmodel "TeamWork/module/chat/model"
	"TeamWork/module/presence"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/decode"
	"TeamWork/tools/errs"
)

// Server owns the transport side of the realtime core: the hub, the
// websocket handler, and the polling fallback. Business state lives in
// the injected services, never here.
type Server struct {
	hub     *Hub
	tracker *presence.Tracker
	rooms   *chat.Rooms
	polls   *PollManager
}

func NewServer(hub *Hub, tracker *presence.Tracker, rooms *chat.Rooms) *Server {
	s := &Server{hub: hub, tracker: tracker, rooms: rooms}
	s.polls = newPollManager(hub, tracker)
	return s
}

func (s *Server) Hub() *Hub           { return s.hub }
func (s *Server) Polls() *PollManager { return s.polls }

// DispatchInbound routes one decoded client frame. Both transports feed
// it: the websocket read loop and the poll send endpoint. The switch is
// exhaustive over the inbound kinds.
func (s *Server) DispatchInbound(ctx context.Context, userID, connID string, in *event.Inbound) error {
	switch in.Kind {
	case event.KindHeartbeat:
		return s.tracker.Heartbeat(ctx, userID)

	case event.KindTeamSend:
		p, err := decode.DecodeMap[event.TeamSendPayload](in.Payload)
		if err != nil {
			return errs.ErrValidation.WithDetail(err.Error())
		}
		_, err = s.rooms.PostMessage(ctx, chatmodel.RoomTeam, userID, p.Text)
		return err

	case event.KindDMSend:
		p, err := decode.DecodeMap[event.DMSendPayload](in.Payload)
		if err != nil {
			return errs.ErrValidation.WithDetail(err.Error())
		}
		if p.ToUserID == "" {
			return errs.ErrValidation.WithDetail("toUserId is required")
		}
		roomID := chatmodel.DMRoomID(userID, p.ToUserID)
		_, err = s.rooms.PostMessage(ctx, roomID, userID, p.Text)
		return err

	case event.KindJoin:
		p, err := decode.DecodeMap[event.JoinPayload](in.Payload)
		if err != nil {
			return errs.ErrValidation.WithDetail(err.Error())
		}
		if p.RoomID == "" {
			return errs.ErrValidation.WithDetail("roomId is required")
		}
		s.hub.Join(connID, p.RoomID)
		return nil

	case event.KindPresenceUpdate, event.KindChatMessage,
		event.KindSorterUpdate, event.KindSorterAnnounce:
		// server-to-client kinds are not accepted inbound
		return errs.ErrValidation.WithDetail("kind " + string(in.Kind) + " is outbound-only")

	default:
		logger.Infof("[gateway] unknown frame kind=%s user=%s", in.Kind, userID)
		return errs.ErrValidation.WithDetail("unknown kind " + string(in.Kind))
	}
}
