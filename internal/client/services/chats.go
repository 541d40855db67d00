package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/models"
	"github.com/zenchat/zenchat/internal/common"
	"github.com/zenchat/zenchat/internal/logging"
)

// identity is the slice of the session service the chat cache needs.
type identity interface {
	CurrentUID() (string, error)
}

// ChatService reconciles server-fetched conversation data with locally
// applied optimistic state and serves consistent reads during concurrent
// fetches.
//
// It keeps an ordered list (recency) and a per-id detail cache, kept
// referentially consistent through a single upsert path. Detail fetches are
// de-duplicated per conversation id via a loading flag; list refreshes are
// not guarded against each other (the last writer wins), and callers should
// avoid firing overlapping refreshes.
type ChatService struct {
	api      api.Client
	session  identity
	log      logging.Logger
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	order   []string
	chats   map[string]*models.Chat
	loading map[string]bool
	sending map[string]bool
	pending []*models.PendingAttachment
	notices
}

func NewChatService(client api.Client, session identity, log logging.Logger, observer Observer) *ChatService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ChatService{
		api:      client,
		session:  session,
		log:      log,
		observer: observer,
		now:      time.Now,
		chats:    make(map[string]*models.Chat),
		loading:  make(map[string]bool),
		sending:  make(map[string]bool),
	}
}

// ConsumeError returns and clears the last boundary error.
func (s *ChatService) ConsumeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumeErr()
}

// ConsumeNotice returns and clears the last informational message.
func (s *ChatService) ConsumeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumeNotice()
}

func (s *ChatService) fail(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, op+" failed", "err", err)
	s.mu.Lock()
	s.setErr(err)
	s.mu.Unlock()
	s.observer.Notice(NoticeError, err.Error())
	return err
}

func (s *ChatService) inform(msg string) {
	s.mu.Lock()
	s.setNotice(msg)
	s.mu.Unlock()
	s.observer.Notice(NoticeInfo, msg)
}

// List returns the ordered conversation list as deep-copied snapshots.
func (s *ChatService) List() []*models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Chat, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.chats[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// IsLoading reports whether a detail fetch for id is in flight.
func (s *ChatService) IsLoading(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[id]
}

// IsSending reports whether a send for id is in flight.
func (s *ChatService) IsSending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending[id]
}

// Clear wipes the list, the detail cache, all flags, and pending
// attachments. Called on logout.
func (s *ChatService) Clear() {
	s.mu.Lock()
	s.order = nil
	s.chats = make(map[string]*models.Chat)
	s.loading = make(map[string]bool)
	s.sending = make(map[string]bool)
	s.pending = nil
	s.mu.Unlock()
	s.observer.StateChanged()
}

// Refresh fetches the full conversation list and replaces the ordered list.
// Fetched entries are merged against cached detail (list responses are
// metadata-only, so non-empty cached messages/files survive); cache entries
// no longer present server-side are evicted.
func (s *ChatService) Refresh(ctx context.Context) error {
	uid, err := s.session.CurrentUID()
	if err != nil {
		return s.fail(ctx, "refresh chats", err)
	}

	fetched, err := s.api.ListChats(ctx, uid)
	if err != nil {
		return s.fail(ctx, "refresh chats", err)
	}

	s.mu.Lock()
	next := make(map[string]*models.Chat, len(fetched))
	order := make([]string, 0, len(fetched))
	for _, f := range fetched {
		next[f.ID] = mergeChats(s.chats[f.ID], f)
		order = append(order, f.ID)
	}
	s.chats = next
	s.order = order
	s.mu.Unlock()

	s.observer.StateChanged()
	return nil
}

// Get fetches full detail for one conversation. If a load for this id is
// already in flight the current cached value is returned instead of
// starting a duplicate fetch. The loading flag is cleared on every path.
func (s *ChatService) Get(ctx context.Context, id string) (*models.Chat, error) {
	uid, err := s.session.CurrentUID()
	if err != nil {
		return nil, s.fail(ctx, "load chat", err)
	}

	s.mu.Lock()
	if s.loading[id] {
		cached := s.chats[id].Clone()
		s.mu.Unlock()
		return cached, nil
	}
	s.loading[id] = true
	s.mu.Unlock()
	s.observer.StateChanged()

	defer func() {
		s.mu.Lock()
		delete(s.loading, id)
		s.mu.Unlock()
		s.observer.StateChanged()
	}()

	detail, err := s.api.GetChat(ctx, uid, id)
	if err != nil {
		return nil, s.fail(ctx, "load chat", err)
	}

	s.mu.Lock()
	merged := s.upsertLocked(detail, false)
	out := merged.Clone()
	s.mu.Unlock()
	return out, nil
}

// EnsureLoaded returns the cached detail immediately when it already holds
// at least one message, otherwise delegates to Get.
func (s *ChatService) EnsureLoaded(ctx context.Context, id string) (*models.Chat, error) {
	s.mu.Lock()
	if c, ok := s.chats[id]; ok && len(c.Messages) > 0 {
		out := c.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.Get(ctx, id)
}

// Create creates a conversation server-side and inserts it at the front of
// the list. Any pending attachments picked before the conversation existed
// are uploaded to it.
func (s *ChatService) Create(ctx context.Context, title, systemPrompt string) (*models.Chat, error) {
	uid, err := s.session.CurrentUID()
	if err != nil {
		return nil, s.fail(ctx, "create chat", err)
	}

	chat, err := s.api.CreateChat(ctx, uid, title, systemPrompt)
	if err != nil {
		return nil, s.fail(ctx, "create chat", err)
	}

	s.mu.Lock()
	merged := s.upsertLocked(chat, true)
	out := merged.Clone()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.observer.StateChanged()

	for _, p := range pending {
		if _, err := s.UploadFile(ctx, chat.ID, p.FileName, p.MimeType, p.Data); err != nil {
			s.log.Warn(ctx, "pending attachment upload failed", "chat", chat.ID, "file", p.FileName, "err", err)
		}
	}
	return out, nil
}

// Update patches title and/or system prompt. A plain metadata change does
// not reorder the list.
func (s *ChatService) Update(ctx context.Context, id string, update api.ChatUpdate) (*models.Chat, error) {
	uid, err := s.session.CurrentUID()
	if err != nil {
		return nil, s.fail(ctx, "update chat", err)
	}

	chat, err := s.api.UpdateChat(ctx, uid, id, update)
	if err != nil {
		return nil, s.fail(ctx, "update chat", err)
	}

	s.mu.Lock()
	merged := s.upsertLocked(chat, false)
	out := merged.Clone()
	s.mu.Unlock()
	s.observer.StateChanged()
	return out, nil
}

// Delete removes the conversation server-side and evicts it from both the
// list and the detail cache.
func (s *ChatService) Delete(ctx context.Context, id string) error {
	uid, err := s.session.CurrentUID()
	if err != nil {
		return s.fail(ctx, "delete chat", err)
	}

	if err := s.api.DeleteChat(ctx, uid, id); err != nil {
		return s.fail(ctx, "delete chat", err)
	}

	s.mu.Lock()
	delete(s.chats, id)
	delete(s.loading, id)
	delete(s.sending, id)
	s.order = removeID(s.order, id)
	s.mu.Unlock()

	s.observer.StateChanged()
	s.inform("Chat deleted.")
	return nil
}

// SendMessage posts a message. At least one of content or fileIDs is
// required; validation failures never reach the network. On success the
// returned user message and, when present, assistant message are appended
// onto the cached detail with no refetch, updatedAt bumps to now, and the
// conversation moves to the front of the list. On failure the cache is left
// exactly as it was.
func (s *ChatService) SendMessage(ctx context.Context, id, content string, fileIDs []string) error {
	content = strings.TrimSpace(content)
	if content == "" && len(fileIDs) == 0 {
		return s.fail(ctx, "send message",
			fmt.Errorf("%w: a message needs text or at least one attachment", common.ErrValidation))
	}

	uid, err := s.session.CurrentUID()
	if err != nil {
		return s.fail(ctx, "send message", err)
	}

	s.mu.Lock()
	s.sending[id] = true
	s.mu.Unlock()
	s.observer.StateChanged()

	defer func() {
		s.mu.Lock()
		delete(s.sending, id)
		s.mu.Unlock()
		s.observer.StateChanged()
	}()

	res, err := s.api.SendMessage(ctx, uid, id, content, fileIDs)
	if err != nil {
		return s.fail(ctx, "send message", err)
	}

	s.mu.Lock()
	chat, ok := s.chats[id]
	if !ok {
		chat = &models.Chat{ID: id, OwnerID: uid}
		s.chats[id] = chat
	}
	if res.UserMessage != nil {
		chat.Messages = append(chat.Messages, res.UserMessage)
	}
	if res.AssistantMessage != nil {
		chat.Messages = append(chat.Messages, res.AssistantMessage)
	}
	chat.UpdatedAt = s.now()
	s.order = moveToFront(removeID(s.order, id), id)
	s.mu.Unlock()

	s.observer.StateChanged()
	return nil
}

// UploadFile uploads attachment bytes to an existing conversation. The
// returned attachment is merged into the cached file set (replacing any
// attachment with the same id) and updatedAt bumps, but the list is not
// reordered.
func (s *ChatService) UploadFile(ctx context.Context, id, fileName, mimeType string, data []byte) (*models.Attachment, error) {
	if fileName == "" || len(data) == 0 {
		return nil, s.fail(ctx, "upload file",
			fmt.Errorf("%w: a file name and non-empty content are required", common.ErrValidation))
	}

	uid, err := s.session.CurrentUID()
	if err != nil {
		return nil, s.fail(ctx, "upload file", err)
	}

	att, err := s.api.UploadFile(ctx, uid, id, fileName, mimeType, data)
	if err != nil {
		return nil, s.fail(ctx, "upload file", err)
	}

	s.mu.Lock()
	if chat, ok := s.chats[id]; ok {
		replaced := false
		for i, existing := range chat.Files {
			if existing.ID == att.ID {
				chat.Files[i] = att
				replaced = true
				break
			}
		}
		if !replaced {
			chat.Files = append(chat.Files, att)
		}
		chat.UpdatedAt = s.now()
	}
	s.mu.Unlock()

	s.observer.StateChanged()
	s.inform(fmt.Sprintf("Uploaded %s.", att.FileName))
	return att, nil
}

// AddPending holds a file picked before its conversation exists. The bytes
// are uploaded automatically by the next Create.
func (s *ChatService) AddPending(fileName, mimeType string, data []byte) *models.PendingAttachment {
	p := &models.PendingAttachment{
		ID:       uuid.NewString(),
		FileName: fileName,
		MimeType: mimeType,
		Data:     data,
	}
	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	s.observer.StateChanged()
	return p
}

// Pending lists the attachments waiting for a conversation.
func (s *ChatService) Pending() []*models.PendingAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.PendingAttachment(nil), s.pending...)
}

// upsertLocked merges chat into the detail cache and keeps the ordered list
// consistent. moveFront is set only for operations that represent new
// activity (create, send); metadata refreshes and uploads keep the current
// position. Caller holds s.mu.
func (s *ChatService) upsertLocked(chat *models.Chat, moveFront bool) *models.Chat {
	_, known := s.chats[chat.ID]
	merged := mergeChats(s.chats[chat.ID], chat)
	s.chats[chat.ID] = merged

	switch {
	case moveFront:
		s.order = moveToFront(removeID(s.order, chat.ID), chat.ID)
	case !known:
		s.order = append(s.order, chat.ID)
	}
	return merged
}

func removeID(order []string, id string) []string {
	out := order[:0]
	for _, v := range order {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func moveToFront(order []string, id string) []string {
	return append([]string{id}, order...)
}
