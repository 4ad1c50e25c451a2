package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/guildsync/backend/internal/models"
)

// Client is the vendor HTTP API surface the core calls out to. Enforcement
// calls (remove, ban, role mutations) are primary: their failure aborts the
// owning operation. Everything else is best-effort.
type Client interface {
	ListMembers(ctx context.Context) ([]VendorMember, error)
	RemoveMember(ctx context.Context, memberID string, reason *string) error
	BanMember(ctx context.Context, memberID string, reason *string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirect(ctx context.Context, memberID, content string) error
	PostChannel(ctx context.Context, channelID, content string) error
	CreateInvite(ctx context.Context, channelID string) (string, error)
	AddMemberRole(ctx context.Context, memberID, roleID string) error
	RemoveMemberRole(ctx context.Context, memberID, roleID string) error
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, name string, color int, permissions uint64) (*models.Role, error)
}

// restClient talks to the vendor REST API with a bot token.
type restClient struct {
	http        *http.Client
	baseURL     string
	token       string
	communityID string
}

// NewRESTClient creates a Client over the vendor REST API.
func NewRESTClient(baseURL, token, communityID string) Client {
	return &restClient{
		http:        &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		token:       token,
		communityID: communityID,
	}
}

func (c *restClient) ListMembers(ctx context.Context) ([]VendorMember, error) {
	var members []VendorMember
	path := fmt.Sprintf("/communities/%s/members", c.communityID)
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *restClient) RemoveMember(ctx context.Context, memberID string, reason *string) error {
	path := fmt.Sprintf("/communities/%s/members/%s", c.communityID, url.PathEscape(memberID))
	return c.do(ctx, http.MethodDelete, path, reasonBody(reason), nil)
}

func (c *restClient) BanMember(ctx context.Context, memberID string, reason *string) error {
	path := fmt.Sprintf("/communities/%s/bans/%s", c.communityID, url.PathEscape(memberID))
	return c.do(ctx, http.MethodPut, path, reasonBody(reason), nil)
}

func (c *restClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *restClient) SendDirect(ctx context.Context, memberID, content string) error {
	path := fmt.Sprintf("/members/%s/messages", url.PathEscape(memberID))
	return c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, nil)
}

func (c *restClient) PostChannel(ctx context.Context, channelID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	return c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, nil)
}

func (c *restClient) CreateInvite(ctx context.Context, channelID string) (string, error) {
	path := fmt.Sprintf("/channels/%s/invites", url.PathEscape(channelID))
	body := map[string]interface{}{
		"max_uses": 1,
		"max_age":  int((7 * 24 * time.Hour).Seconds()),
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *restClient) AddMemberRole(ctx context.Context, memberID, roleID string) error {
	path := fmt.Sprintf("/communities/%s/members/%s/roles/%s",
		c.communityID, url.PathEscape(memberID), url.PathEscape(roleID))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *restClient) RemoveMemberRole(ctx context.Context, memberID, roleID string) error {
	path := fmt.Sprintf("/communities/%s/members/%s/roles/%s",
		c.communityID, url.PathEscape(memberID), url.PathEscape(roleID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *restClient) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	path := fmt.Sprintf("/communities/%s/roles", c.communityID)
	if err := c.do(ctx, http.MethodGet, path, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *restClient) CreateRole(ctx context.Context, name string, color int, permissions uint64) (*models.Role, error) {
	path := fmt.Sprintf("/communities/%s/roles", c.communityID)
	body := map[string]interface{}{
		"name":        name,
		"color":       color,
		"permissions": permissions,
	}
	var role models.Role
	if err := c.do(ctx, http.MethodPost, path, body, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

func (c *restClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("vendor API returned %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func reasonBody(reason *string) interface{} {
	if reason == nil {
		return nil
	}
	return map[string]string{"reason": *reason}
}
