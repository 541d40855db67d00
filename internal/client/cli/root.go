package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if sess := a.session.Current(); sess != nil {
		s = sess.Email
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to ZenChat CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("zc %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, open, new, send, attach, title, delete, logout, exit")
			} else {
				printlnFn("Available commands: login, signup, google, exit")
			}

		case "signup":
			_ = a.SignUp(ctx)
		case "login":
			_ = a.Login(ctx)
		case "google":
			_ = a.Google(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "l", "list":
			_ = a.list(ctx)
		case "open":
			_ = a.open(ctx, args)
		case "new":
			_ = a.newChat(ctx)
		case "send":
			_ = a.send(ctx, args)
		case "attach":
			_ = a.attach(ctx, args)
		case "title":
			_ = a.title(ctx, args)
		case "delete":
			_ = a.deleteChat(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
