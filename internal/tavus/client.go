package tavus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin JSON client for the Tavus conversational-video API.
// Tavus is an opaque collaborator: this client only starts conversations
// and keeps persona prompts in sync.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type Conversation struct {
	ConversationID  string `json:"conversation_id"`
	ConversationURL string `json:"conversation_url"`
}

type createConversationReq struct {
	ReplicaID   string   `json:"replica_id"`
	PersonaID   string   `json:"persona_id"`
	DocumentIDs []string `json:"document_ids"`
}

func (c *Client) CreateConversation(ctx context.Context, replicaID, personaID string) (*Conversation, error) {
	body := createConversationReq{
		ReplicaID:   replicaID,
		PersonaID:   personaID,
		DocumentIDs: []string{},
	}

	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

type personaPatch struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// SyncPersona replaces the persona's system prompt and context. Best-effort:
// callers are expected to log, not fail, when this errors.
func (c *Client) SyncPersona(ctx context.Context, personaID, systemPrompt, contextText string) error {
	if personaID == "" {
		return nil
	}

	var patches []personaPatch
	if systemPrompt != "" {
		patches = append(patches, personaPatch{Op: "replace", Path: "/system_prompt", Value: systemPrompt})
	}
	if contextText != "" {
		patches = append(patches, personaPatch{Op: "replace", Path: "/context", Value: contextText})
	}
	if len(patches) == 0 {
		return nil
	}

	return c.do(ctx, http.MethodPatch, "/personas/"+personaID, patches, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("tavus %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("tavus %s %s: status %d: %s", method, path, resp.StatusCode, string(text))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
