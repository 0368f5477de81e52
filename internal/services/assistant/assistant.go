// Package assistant is the Assistant V1 client.
package assistant

import (
	"context"
	"net/http"

	"github.com/watson-developer-cloud/go-sdk/internal/service"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
)

var (
	messageMethod = service.Method{
		Service:     "Assistant",
		Name:        "Message",
		HTTPMethod:  http.MethodPost,
		Path:        "/v1/workspaces/{workspace_id}/message",
		Required:    []string{"workspace_id"},
		PathParams:  []string{"workspace_id"},
		QueryParams: []string{"nodes_visited_details"},
		BodyParams:  []string{"input", "intents", "entities", "alternate_intents", "context", "output"},
	}
	listWorkspacesMethod = service.Method{
		Service:     "Assistant",
		Name:        "ListWorkspaces",
		HTTPMethod:  http.MethodGet,
		Path:        "/v1/workspaces",
		QueryParams: []string{"page_limit", "sort", "cursor", "include_audit"},
	}
)

// V1 talks to Assistant workspaces.
type V1 struct {
	*service.BaseService
}

// New creates a client. opts.Version is required.
func New(opts service.Options) (*V1, error) {
	base, err := services.Open(services.Assistant, opts)
	if err != nil {
		return nil, err
	}
	return &V1{BaseService: base}, nil
}

// MessageInput is the user utterance.
type MessageInput struct {
	Text string `json:"text"`
}

// RuntimeIntent is a recognized intent.
type RuntimeIntent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// RuntimeEntity is a recognized entity.
type RuntimeEntity struct {
	Entity     string  `json:"entity"`
	Location   []int   `json:"location"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// MessageParams are the inputs to Message. Context round-trips the
// conversation state returned by the previous turn.
type MessageParams struct {
	WorkspaceID         string `url:"workspace_id" json:"-" validate:"required"`
	NodesVisitedDetails *bool  `url:"nodes_visited_details,omitempty" json:"-"`

	Input            *MessageInput   `json:"input,omitempty" url:"-"`
	Intents          []RuntimeIntent `json:"intents,omitempty" url:"-"`
	Entities         []RuntimeEntity `json:"entities,omitempty" url:"-"`
	AlternateIntents *bool           `json:"alternate_intents,omitempty" url:"-"`
	Context          map[string]any  `json:"context,omitempty" url:"-"`
	Output           map[string]any  `json:"output,omitempty" url:"-"`
}

// MessageResponse is the Message response.
type MessageResponse struct {
	Input    MessageInput    `json:"input"`
	Intents  []RuntimeIntent `json:"intents"`
	Entities []RuntimeEntity `json:"entities"`
	Context  map[string]any  `json:"context"`
	Output   map[string]any  `json:"output"`
}

// Message sends one user turn to a workspace.
func (s *V1) Message(ctx context.Context, params *MessageParams) (*MessageResponse, error) {
	var out MessageResponse
	if _, err := s.CallInto(ctx, messageMethod, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkspacesParams page and sort ListWorkspaces.
type ListWorkspacesParams struct {
	PageLimit    int    `url:"page_limit,omitempty" json:"-"`
	Sort         string `url:"sort,omitempty" json:"-" validate:"omitempty,oneof=name updated -name -updated"`
	Cursor       string `url:"cursor,omitempty" json:"-"`
	IncludeAudit *bool  `url:"include_audit,omitempty" json:"-"`
}

// Workspace summarizes one workspace.
type Workspace struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
}

// Pagination carries the cursor for the next page.
type Pagination struct {
	RefreshURL string `json:"refresh_url"`
	NextURL    string `json:"next_url,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	Total      int    `json:"total,omitempty"`
}

// WorkspaceCollection is the ListWorkspaces response.
type WorkspaceCollection struct {
	Workspaces []Workspace `json:"workspaces"`
	Pagination Pagination  `json:"pagination"`
}

// ListWorkspaces lists the workspaces of the instance. params may be nil.
func (s *V1) ListWorkspaces(ctx context.Context, params *ListWorkspacesParams) (*WorkspaceCollection, error) {
	var out WorkspaceCollection
	if _, err := s.CallInto(ctx, listWorkspacesMethod, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
