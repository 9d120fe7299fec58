package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"aayush-bot/internal/bootstrap"
	"aayush-bot/internal/config"
	"aayush-bot/internal/constant"
	"aayush-bot/internal/entity"
	"aayush-bot/internal/model"
	"aayush-bot/internal/service"
	"aayush-bot/internal/tracer"
	"aayush-bot/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer("aayush-bot-chat")
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize the device-local store
	gormDB, err := database.NewSQLiteDB(cfg.App.LocalStorePath)
	if err != nil {
		log.Fatalf("Unable to open local store: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.KVRecord{}); err != nil {
		log.Fatalf("Local store migration failed: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	// 4. Start Background Consumers
	// Subscriptions must be live before the first login publishes anything;
	// Start returns only once all topics are subscribed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := container.ConsumerService.Start(ctx); err != nil {
		log.Fatalf("Unable to start consumers: %v", err)
	}

	// 5. Run the REPL
	r := newRepl(container)
	r.run(ctx)
}

type repl struct {
	sessions service.ISessionService
	activity service.IActivityService
	prefs    service.IPreferenceService

	in *bufio.Scanner

	botColor   *color.Color
	userColor  *color.Color
	dimColor   *color.Color
	errorColor *color.Color
}

func newRepl(c *bootstrap.Container) *repl {
	return &repl{
		sessions:   c.SessionService,
		activity:   c.ActivityService,
		prefs:      c.PreferenceService,
		in:         bufio.NewScanner(os.Stdin),
		botColor:   color.New(color.FgCyan),
		userColor:  color.New(color.FgGreen, color.Bold),
		dimColor:   color.New(color.Faint),
		errorColor: color.New(color.FgRed),
	}
}

func (r *repl) run(ctx context.Context) {
	r.botColor.Println("Aayush.bot")
	r.dimColor.Println("Type /help for commands.")
	fmt.Println()

	user := r.login(ctx)

	for {
		r.userColor.Printf("%s> ", user.Name)
		if !r.in.Scan() {
			r.activity.RecordLogout(ctx, user)
			r.sessions.Logout(ctx)
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			switch r.command(ctx, user, line) {
			case actionQuit:
				r.activity.RecordLogout(ctx, user)
				r.sessions.Logout(ctx)
				return
			case actionLogout:
				r.activity.RecordLogout(ctx, user)
				r.sessions.Logout(ctx)
				r.prefs.ClearUser(ctx)
				fmt.Println()
				user = r.login(ctx)
			}
			continue
		}

		current := r.sessions.Snapshot().CurrentSessionId
		if r.sessions.Busy(current) {
			r.dimColor.Println("Still replying, hold on.")
			continue
		}
		r.sessions.AppendUserMessage(ctx, line)
		r.streamReply(current)
	}
}

// login restores the saved identity or prompts for a new one. A blank name
// logs in as guest.
func (r *repl) login(ctx context.Context) *entity.User {
	if user, ok := r.prefs.SavedUser(ctx); ok {
		r.dimColor.Printf("Welcome back, %s.\n\n", user.Name)
		r.sessions.Login(ctx, user)
		r.activity.RecordLogin(ctx, user)
		r.printCurrentSession()
		return user
	}

	var name, email string
	fmt.Print("Name (blank for guest): ")
	if r.in.Scan() {
		name = strings.TrimSpace(r.in.Text())
	}

	var user *entity.User
	if name == "" {
		user = &entity.User{
			Id:       uuid.New().String(),
			Name:     "Guest",
			Email:    entity.GuestEmail,
			Provider: entity.UserProviderGuest,
		}
	} else {
		fmt.Print("Email: ")
		if r.in.Scan() {
			email = strings.TrimSpace(r.in.Text())
		}
		user = &entity.User{
			Id:       uuid.New().String(),
			Name:     name,
			Email:    email,
			Provider: entity.UserProviderEmail,
		}
		r.prefs.SaveUser(ctx, user)
	}

	fmt.Println()
	r.sessions.Login(ctx, user)
	r.activity.RecordLogin(ctx, user)
	r.printCurrentSession()
	return user
}

type action int

const (
	actionNone action = iota
	actionQuit
	actionLogout
)

func (r *repl) command(ctx context.Context, user *entity.User, line string) action {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		r.printHelp()
	case "/new":
		r.sessions.CreateSession()
		r.printCurrentSession()
	case "/list":
		r.printSessionList()
	case "/select":
		if len(args) != 1 {
			r.dimColor.Println("Usage: /select <number from /list>")
			return actionNone
		}
		if id, ok := r.sessionIdAt(args[0]); ok {
			r.sessions.SelectSession(id)
			r.printCurrentSession()
		} else {
			r.dimColor.Println("No such session.")
		}
	case "/delete":
		id := r.sessions.Snapshot().CurrentSessionId
		if len(args) == 1 {
			var ok bool
			if id, ok = r.sessionIdAt(args[0]); !ok {
				r.dimColor.Println("No such session.")
				return actionNone
			}
		}
		r.sessions.DeleteSession(id)
		r.printCurrentSession()
	case "/history":
		r.printTranscript()
	case "/admin":
		r.printActivity(ctx, user)
	case "/theme":
		mode := themeToggle(r.prefs.ThemeMode(ctx))
		r.prefs.SetThemeMode(ctx, mode)
		r.dimColor.Printf("Theme set to %s.\n", mode)
	case "/logout":
		return actionLogout
	case "/quit", "/exit":
		return actionQuit
	default:
		r.dimColor.Println("Unknown command. Type /help.")
	}
	return actionNone
}

func themeToggle(mode string) string {
	if mode == service.ThemeModeDark {
		return service.ThemeModeLight
	}
	return service.ThemeModeDark
}

func (r *repl) printHelp() {
	fmt.Println("  /new          start a new session")
	fmt.Println("  /list         list sessions")
	fmt.Println("  /select <n>   switch to session n")
	fmt.Println("  /delete [n]   delete session n (default: current)")
	fmt.Println("  /history      replay the current session")
	fmt.Println("  /admin        show user activity")
	fmt.Println("  /theme        toggle dark/light mode")
	fmt.Println("  /logout       switch user")
	fmt.Println("  /quit         exit")
}

func (r *repl) printSessionList() {
	state := r.sessions.Snapshot()
	for i, s := range state.Sessions {
		marker := " "
		if s.Id == state.CurrentSessionId {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s\n", marker, i+1, s.Title)
	}
}

// sessionIdAt resolves a 1-based /list index against the current snapshot.
func (r *repl) sessionIdAt(arg string) (string, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", false
	}
	state := r.sessions.Snapshot()
	if n < 1 || n > len(state.Sessions) {
		return "", false
	}
	return state.Sessions[n-1].Id, true
}

func (r *repl) printCurrentSession() {
	state := r.sessions.Snapshot()
	session := state.CurrentSession()
	if session == nil {
		return
	}
	r.dimColor.Printf("-- %s --\n", session.Title)
	for _, m := range session.Messages {
		if m.Role == constant.ChatMessageRoleModel && m.Text != "" {
			r.printModelLine(m)
		}
	}
}

func (r *repl) printTranscript() {
	session := r.sessions.Snapshot().CurrentSession()
	if session == nil {
		return
	}
	r.dimColor.Printf("-- %s --\n", session.Title)
	for _, m := range session.Messages {
		if m.Role == constant.ChatMessageRoleUser {
			r.userColor.Printf("you> ")
			fmt.Println(m.Text)
		} else {
			r.printModelLine(m)
		}
	}
}

func (r *repl) printModelLine(m *entity.Message) {
	if m.IsError {
		r.errorColor.Println(m.Text)
		return
	}
	r.botColor.Println(m.Text)
}

func (r *repl) printActivity(ctx context.Context, user *entity.User) {
	known, err := r.activity.RefreshFromCollector(ctx)
	if err != nil || known == nil {
		known = r.activity.KnownUsers(ctx)
	}
	known = r.activity.ProjectActivity(known, user)
	if len(known) == 0 {
		r.dimColor.Println("No users recorded yet.")
		return
	}
	for _, a := range known {
		when := time.UnixMilli(a.LastActive).Format("2006-01-02 15:04")
		fmt.Printf("  %-20s %-30s %-7s %s\n", a.Name, a.Email, a.Status, when)
	}
}

// streamReply renders the in-flight model reply incrementally: each update
// prints only the suffix the snapshot gained since the last one.
func (r *repl) streamReply(sessionId string) {
	printed := 0
	messageId := ""

	for {
		select {
		case <-r.sessions.Updates():
		case <-time.After(250 * time.Millisecond):
		}

		session := r.sessions.Snapshot().Session(sessionId)
		busy := r.sessions.Busy(sessionId)
		if session == nil || len(session.Messages) == 0 {
			if !busy {
				return
			}
			continue
		}

		last := session.Messages[len(session.Messages)-1]
		if last.Role == constant.ChatMessageRoleModel && (messageId == "" || last.Id == messageId) {
			messageId = last.Id
			if last.IsError {
				if printed > 0 {
					fmt.Println()
				}
				r.errorColor.Println(last.Text)
				return
			}
			text := []rune(last.Text)
			if len(text) > printed {
				r.botColor.Print(string(text[printed:]))
				printed = len(text)
			}
		}

		if !busy {
			if printed > 0 {
				fmt.Println()
			}
			return
		}
	}
}
