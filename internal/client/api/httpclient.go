package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zenchat/zenchat/internal/client/models"
)

// HTTPClient implements Client against the backend REST API.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient constructs a client for the given base URL, e.g.
// "http://127.0.0.1:5000". A non-positive timeout disables the client-side
// request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// ---- wire formats ----

type wireChat struct {
	ID           string `json:"id"`
	UID          string `json:"uid"`
	Title        string `json:"title"`
	SystemPrompt string `json:"systemPrompt"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type wireMessage struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"createdAt"`
	FileIDs   []string `json:"fileIds"`
}

type wireFile struct {
	ID           string `json:"id"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	CreatedAt    string `json:"createdAt"`
	DownloadPath string `json:"downloadPath"`
	TextPreview  string `json:"textPreview"`
}

// parseTime decodes the backend's ISO-8601 timestamps. A missing or
// malformed value yields the zero time rather than an error: timestamps are
// advisory metadata, not required fields.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (w *wireChat) toModel() *models.Chat {
	return &models.Chat{
		ID:           w.ID,
		OwnerID:      w.UID,
		Title:        w.Title,
		SystemPrompt: w.SystemPrompt,
		CreatedAt:    parseTime(w.CreatedAt),
		UpdatedAt:    parseTime(w.UpdatedAt),
	}
}

func (w *wireMessage) toModel() *models.Message {
	return &models.Message{
		ID:        w.ID,
		Role:      models.Role(w.Role),
		Content:   w.Content,
		CreatedAt: parseTime(w.CreatedAt),
		FileIDs:   w.FileIDs,
	}
}

func (w *wireFile) toModel() *models.Attachment {
	return &models.Attachment{
		ID:           w.ID,
		FileName:     w.FileName,
		MimeType:     w.MimeType,
		Size:         w.Size,
		DownloadPath: w.DownloadPath,
		TextPreview:  w.TextPreview,
		CreatedAt:    parseTime(w.CreatedAt),
	}
}

// ---- request plumbing ----

// do issues a request and decodes a 2xx JSON body into out (skipped when out
// is nil or the body is empty / 204). Non-2xx responses are normalized into
// *Error; transport failures wrap ErrUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

func (c *HTTPClient) decode(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError parses an error body of the form
// {"error": code, "message": msg, ...} best-effort; anything else falls back
// to the HTTP reason phrase. Extra body fields are kept in Details.
func decodeError(status int, data []byte) error {
	e := &Error{StatusCode: status, Message: http.StatusText(status)}

	var raw map[string]any
	if len(data) > 0 && json.Unmarshal(data, &raw) == nil {
		if code, ok := raw["error"].(string); ok {
			e.Code = code
		}
		if msg, ok := raw["message"].(string); ok && msg != "" {
			e.Message = msg
		}
		delete(raw, "error")
		delete(raw, "message")
		if len(raw) > 0 {
			e.Details = raw
		}
	}
	return e
}

// ---- auth operations ----

func (c *HTTPClient) SignUp(ctx context.Context, email, password, displayName string) (*Account, error) {
	req := map[string]any{"email": email, "password": password}
	if displayName != "" {
		req["displayName"] = displayName
	}

	var resp struct {
		UID           string `json:"uid"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		EmailVerified bool   `json:"emailVerified"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req, &resp); err != nil {
		return nil, err
	}
	return &Account{
		UID:           resp.UID,
		Email:         resp.Email,
		DisplayName:   resp.DisplayName,
		EmailVerified: resp.EmailVerified,
	}, nil
}

type wireCredentials struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IsNewAccount bool   `json:"isNewAccount"`
}

func (w *wireCredentials) toCredentials() *Credentials {
	ttl := time.Hour
	if secs, err := strconv.Atoi(w.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	return &Credentials{
		IDToken:      w.IDToken,
		RefreshToken: w.RefreshToken,
		ExpiresIn:    ttl,
		UID:          w.LocalID,
		Email:        w.Email,
		DisplayName:  w.DisplayName,
		PhotoURL:     w.PhotoURL,
		IsNewAccount: w.IsNewAccount,
	}
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Credentials, error) {
	req := map[string]any{"email": email, "password": password}
	var resp wireCredentials
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.toCredentials(), nil
}

func (c *HTTPClient) GoogleSignIn(ctx context.Context, idToken string) (*Credentials, error) {
	req := map[string]any{"idToken": idToken}
	var resp wireCredentials
	if err := c.do(ctx, http.MethodPost, "/auth/google-signin", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.toCredentials(), nil
}

func (c *HTTPClient) VerifyToken(ctx context.Context, idToken string) (*TokenInfo, error) {
	req := map[string]any{"idToken": idToken}
	var resp struct {
		UID    string         `json:"uid"`
		Email  string         `json:"email"`
		Claims map[string]any `json:"claims"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/verify-token", nil, req, &resp); err != nil {
		return nil, err
	}
	return &TokenInfo{UID: resp.UID, Email: resp.Email, Claims: resp.Claims}, nil
}

// ---- chat operations ----

func (c *HTTPClient) CreateChat(ctx context.Context, uid, title, systemPrompt string) (*models.Chat, error) {
	req := map[string]any{"uid": uid, "title": title}
	if systemPrompt != "" {
		req["systemPrompt"] = systemPrompt
	}
	var resp wireChat
	if err := c.do(ctx, http.MethodPost, "/chats", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *HTTPClient) ListChats(ctx context.Context, uid string) ([]*models.Chat, error) {
	var resp struct {
		Items []wireChat `json:"items"`
	}
	q := url.Values{"uid": {uid}}
	if err := c.do(ctx, http.MethodGet, "/chats", q, nil, &resp); err != nil {
		return nil, err
	}
	chats := make([]*models.Chat, 0, len(resp.Items))
	for i := range resp.Items {
		chats = append(chats, resp.Items[i].toModel())
	}
	return chats, nil
}

func (c *HTTPClient) GetChat(ctx context.Context, uid, chatID string) (*models.Chat, error) {
	var resp struct {
		Chat     wireChat      `json:"chat"`
		Messages []wireMessage `json:"messages"`
		Files    []wireFile    `json:"files"`
	}
	q := url.Values{"uid": {uid}}
	if err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), q, nil, &resp); err != nil {
		return nil, err
	}

	chat := resp.Chat.toModel()
	chat.Messages = make([]*models.Message, 0, len(resp.Messages))
	for i := range resp.Messages {
		chat.Messages = append(chat.Messages, resp.Messages[i].toModel())
	}
	chat.Files = make([]*models.Attachment, 0, len(resp.Files))
	for i := range resp.Files {
		chat.Files = append(chat.Files, resp.Files[i].toModel())
	}
	return chat, nil
}

func (c *HTTPClient) UpdateChat(ctx context.Context, uid, chatID string, update ChatUpdate) (*models.Chat, error) {
	req := map[string]any{"uid": uid}
	if update.Title != nil {
		req["title"] = *update.Title
	}
	if update.SystemPrompt != nil {
		req["systemPrompt"] = *update.SystemPrompt
	}
	var resp wireChat
	if err := c.do(ctx, http.MethodPatch, "/chats/"+url.PathEscape(chatID), nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *HTTPClient) DeleteChat(ctx context.Context, uid, chatID string) error {
	req := map[string]any{"uid": uid}
	return c.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), nil, req, nil)
}

func (c *HTTPClient) SendMessage(ctx context.Context, uid, chatID, content string, fileIDs []string) (*SendResult, error) {
	req := map[string]any{"uid": uid, "content": content, "role": string(models.RoleUser)}
	if len(fileIDs) > 0 {
		req["fileIds"] = fileIDs
	}

	var resp struct {
		UserMessage      *wireMessage `json:"userMessage"`
		AssistantMessage *wireMessage `json:"assistantMessage"`
	}
	path := "/chats/" + url.PathEscape(chatID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}

	result := &SendResult{}
	if resp.UserMessage != nil {
		result.UserMessage = resp.UserMessage.toModel()
	}
	if resp.AssistantMessage != nil {
		result.AssistantMessage = resp.AssistantMessage.toModel()
	}
	return result, nil
}

func (c *HTTPClient) UploadFile(ctx context.Context, uid, chatID, fileName, mimeType string, data []byte) (*models.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("uid", uid); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	u := c.baseURL + "/chats/" + url.PathEscape(chatID) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		File wireFile `json:"file"`
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return out.File.toModel(), nil
}
