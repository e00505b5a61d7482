package api

import "context"

// Extension is one SIP endpoint belonging to the authenticated user.
type Extension struct {
	Exten       string `json:"exten"`
	Type        string `json:"type"` // webrtc, physical, mobile, nethlink
	Username    string `json:"username"`
	Description string `json:"description"`
	Online      bool   `json:"online"`
	Default     bool   `json:"default"`
}

// UserEndpoints fetches the extensions of the authenticated user.
func (c *Client) UserEndpoints(ctx context.Context) ([]Extension, error) {
	var out []Extension
	if err := c.getJSON(ctx, "user/endpoints", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionInfo is the PBX's view of the user's current call, fetched when
// a push event asks for a session refresh.
type SessionInfo struct {
	ConversationID string `json:"conversation_id"`
	Counterpart    string `json:"counterpart"`
	Status         string `json:"status"`
	StartTime      int64  `json:"startTime"`
}

// CurrentSession fetches the server-side view of the active call.
func (c *Client) CurrentSession(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.getJSON(ctx, "user/me/session", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
