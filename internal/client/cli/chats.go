package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/models"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

const titlePreviewLen = 40

// list prints the chat list, most recently active first. The printed index
// is accepted by open/delete as a shorthand for the chat id.
func (a *App) list(ctx context.Context) error {
	if err := a.chats.Refresh(ctx); err != nil {
		return err
	}

	items := a.chats.List()
	if len(items) == 0 {
		printlnFn("No chats yet. Type 'new' to start one.")
		return nil
	}

	for i, c := range items {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > titlePreviewLen {
			title = title[:titlePreviewLen-3] + "..."
		}
		marker := " "
		if c.ID == a.current {
			marker = "*"
		}
		printlnFn(fmt.Sprintf("%s %2d. %s  (%s)", marker, i+1, title, c.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

// open selects a chat by list index or id and prints its messages.
func (a *App) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: open <number|id>")
		return nil
	}

	id := a.resolveChatRef(args[0])
	if id == "" {
		printlnFn("No such chat:", args[0])
		return nil
	}

	chat, err := a.chats.EnsureLoaded(ctx, id)
	if err != nil {
		return err
	}

	a.current = chat.ID
	printChat(chat)
	return nil
}

// newChat creates a chat. Title and system prompt are prompted for and both
// may be left empty.
func (a *App) newChat(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Title (optional)", os.Stdout)
	if err != nil {
		return err
	}
	systemPrompt, err := GetMultiline(a.reader, "System prompt (optional)", os.Stdout)
	if err != nil {
		return err
	}

	chat, err := a.chats.Create(ctx, title, systemPrompt)
	if err != nil {
		return err
	}

	a.current = chat.ID
	printlnFn("Chat created and opened.")
	return nil
}

// send posts a message to the current chat. With arguments the remainder of
// the line is the message text; without, a multiline prompt is shown.
func (a *App) send(ctx context.Context, args []string) error {
	if a.current == "" {
		printlnFn("No chat open. Use 'open <number>' or 'new' first.")
		return nil
	}

	content := strings.Join(args, " ")
	if content == "" {
		var err error
		content, err = GetMultiline(a.reader, "Message", os.Stdout)
		if err != nil {
			return err
		}
	}

	if err := a.chats.SendMessage(ctx, a.current, content, nil); err != nil {
		return err
	}

	chat, err := a.chats.EnsureLoaded(ctx, a.current)
	if err != nil {
		return err
	}
	printLastExchange(chat)
	return nil
}

// attach uploads a local file to the current chat, or holds it as a pending
// attachment when no chat is open yet.
func (a *App) attach(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: attach <path>")
		return nil
	}

	path := args[0]
	data, err := readFile(path)
	if err != nil {
		printlnFn("Cannot read file:", err.Error())
		return nil
	}

	fileName := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(path))

	if a.current == "" {
		a.chats.AddPending(fileName, mimeType, data)
		printlnFn(fmt.Sprintf("Holding %s; it will be attached to the next new chat.", fileName))
		return nil
	}

	_, err = a.chats.UploadFile(ctx, a.current, fileName, mimeType, data)
	return err
}

// title renames the current chat without moving it in the list.
func (a *App) title(ctx context.Context, args []string) error {
	if a.current == "" {
		printlnFn("No chat open.")
		return nil
	}

	t := strings.Join(args, " ")
	if t == "" {
		var err error
		t, err = getSimpleText(a.reader, "New title", os.Stdout)
		if err != nil {
			return err
		}
	}

	_, err := a.chats.Update(ctx, a.current, api.ChatUpdate{Title: &t})
	if err == nil {
		printlnFn("Title updated.")
	}
	return err
}

// deleteChat deletes a chat by list index or id, defaulting to the current one.
func (a *App) deleteChat(ctx context.Context, args []string) error {
	id := a.current
	if len(args) > 0 {
		id = a.resolveChatRef(args[0])
	}
	if id == "" {
		printlnFn("Usage: delete <number|id>")
		return nil
	}

	if err := a.chats.Delete(ctx, id); err != nil {
		return err
	}
	if a.current == id {
		a.current = ""
	}
	return nil
}

// resolveChatRef maps a 1-based list index or a raw id onto a chat id.
// Returns "" when the reference matches nothing.
func (a *App) resolveChatRef(ref string) string {
	items := a.chats.List()
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(items) {
			return items[n-1].ID
		}
		return ""
	}
	for _, c := range items {
		if c.ID == ref {
			return c.ID
		}
	}
	return ""
}

func printChat(chat *models.Chat) {
	if chat.Title != "" {
		printlnFn("=== " + chat.Title + " ===")
	}
	for _, m := range chat.Messages {
		printMessage(m)
	}
	for _, f := range chat.Files {
		printlnFn(fmt.Sprintf("[attachment] %s (%d bytes)", f.FileName, f.Size))
	}
}

func printLastExchange(chat *models.Chat) {
	n := len(chat.Messages)
	start := n - 2
	if start < 0 {
		start = 0
	}
	for _, m := range chat.Messages[start:] {
		printMessage(m)
	}
}

func printMessage(m *models.Message) {
	printlnFn(fmt.Sprintf("[%s] %s", m.Role, m.Content))
}
