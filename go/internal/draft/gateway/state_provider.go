package gateway

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/draft/rpc"
	"github.com/mcdev12/campdraft/go/internal/models"
)

// ClientStateProvider implements StateProvider against a remote draft
// server.
type ClientStateProvider struct {
	client *rpc.Client
}

func NewClientStateProvider(client *rpc.Client) *ClientStateProvider {
	return &ClientStateProvider{client: client}
}

func (p *ClientStateProvider) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	resp, err := p.client.GetDraft(ctx, &rpc.DraftIDRequest{DraftID: draftID.String()})
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Draft, nil
}

func (p *ClientStateProvider) ListDrafts(ctx context.Context, status models.DraftStatus) ([]models.Draft, error) {
	resp, err := p.client.ListDrafts(ctx, &rpc.ListDraftsRequest{Status: status})
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Drafts, nil
}

func fromConnectError(err error) error {
	if connect.CodeOf(err) == connect.CodeNotFound {
		return fmt.Errorf("%w: %w", engine.ErrDraftNotFound, err)
	}
	return fmt.Errorf("draft server: %w", err)
}
