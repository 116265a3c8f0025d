package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/db/sqlite"
	"github.com/iamwavecut/guardbot/internal/scheduler"
)

const (
	testBotID  int64 = 1000
	testSudoID int64 = 42
)

type recordedCall struct {
	method string
	params url.Values
}

// telegramStub serves a minimal Bot API over loopback HTTP and records
// every call the handlers make, so tests can assert on the outbound
// side effects without a network.
type telegramStub struct {
	mu          sync.Mutex
	calls       []recordedCall
	adminIDs    map[int64]bool
	memberCount int
}

func (ts *telegramStub) makeAdmin(userID int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.adminIDs[userID] = true
}

func (ts *telegramStub) callsTo(method string) []recordedCall {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var matched []recordedCall
	for _, call := range ts.calls {
		if call.method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

func (ts *telegramStub) handle(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := path.Base(r.URL.Path)
	userID, _ := strconv.ParseInt(r.Form.Get("user_id"), 10, 64)

	ts.mu.Lock()
	ts.calls = append(ts.calls, recordedCall{method: method, params: r.Form})
	admin := ts.adminIDs[userID]
	count := ts.memberCount
	ts.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprintf(w, `{"ok":true,"result":{"id":%d,"is_bot":true,"first_name":"guard","username":"guard_bot"}}`, testBotID)
	case "sendMessage":
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":777,"date":1,"chat":{"id":-100,"type":"supergroup"}}}`)
	case "getChatMember":
		status := "member"
		if admin {
			status = "administrator"
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"status":%q,"user":{"id":%d,"is_bot":false,"first_name":"member"}}}`, status, userID)
	case "getChatMemberCount", "getChatMembersCount":
		fmt.Fprintf(w, `{"ok":true,"result":%d}`, count)
	case "exportChatInviteLink":
		fmt.Fprint(w, `{"ok":true,"result":"https://t.me/+stublink"}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

type testEnv struct {
	s     bot.Service
	stub  *telegramStub
	sched *scheduler.Scheduler
}

func newTestEnv(t *testing.T) (*testEnv, context.Context) {
	t.Helper()
	ctx := context.Background()

	stub := &telegramStub{adminIDs: map[int64]bool{}, memberCount: 5}
	srv := httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(srv.Close)

	botAPI, err := api.NewBotAPIWithAPIEndpoint("TEST", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("new bot api: %v", err)
	}

	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{
		SudoID:          testSudoID,
		DefaultLanguage: "en",
		LLM:             config.LLM{CheckFirstMessages: 3},
	}
	sched := scheduler.New()
	return &testEnv{
		s:     bot.NewService(botAPI, client, cfg, sched),
		stub:  stub,
		sched: sched,
	}, ctx
}

func groupChat(id int64) api.Chat {
	return api.Chat{ID: id, Type: "supergroup", Title: "testers"}
}

func textMessage(chat api.Chat, from *api.User, text string) *api.Message {
	return &api.Message{
		MessageID: 12,
		Chat:      chat,
		From:      from,
		Text:      text,
		Date:      int(time.Now().Unix()),
	}
}

func commandMessage(chat api.Chat, from *api.User, text string) *api.Message {
	cmdLen := len(text)
	if space := strings.IndexByte(text, ' '); space > 0 {
		cmdLen = space
	}
	msg := textMessage(chat, from, text)
	msg.Entities = []api.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: cmdLen},
	}
	return msg
}
