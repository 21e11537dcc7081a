package app

import (
	"context"

	"convocoach/internal/client"
	"convocoach/internal/media"
	"convocoach/internal/realtime"
	"convocoach/internal/types"
)

type SessionAPI interface {
	ListSessions(ctx context.Context, params client.ListParams) (*client.SessionsPage, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (*types.Session, error)
}

type ChatAPI interface {
	SendMessage(ctx context.Context, req client.SendMessageRequest) (*types.Message, error)
	ListMessages(ctx context.Context, sessionID string, page, perPage int) ([]*types.Message, error)
}

type MediaUploader interface {
	UploadAll(ctx context.Context, files []media.File, progress media.ProgressFunc) ([]string, error)
}

// RealtimeConnector is the subset of realtime.Manager the view drives.
type RealtimeConnector interface {
	Open(sessionID string) (*realtime.Channel, error)
	SetHandlers(handlers realtime.Handlers)
	Close()
}

var (
	_ SessionAPI        = (*client.Client)(nil)
	_ ChatAPI           = (*client.Client)(nil)
	_ MediaUploader     = (*media.Uploader)(nil)
	_ RealtimeConnector = (*realtime.Manager)(nil)
)
