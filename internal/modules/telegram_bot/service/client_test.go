package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testToken = "123:abc"

// fakeAPI отвечает на минимум методов Bot API: getMe, sendMessage, setWebhook, deleteWebhook, getUpdates.
type fakeAPI struct {
	mu      sync.Mutex
	sent    []sentMessage
	methods []string
	webhook string
	srv     *httptest.Server
}

type sentMessage struct {
	chatID string
	text   string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"signal_bot"}}`))
	case "sendMessage":
		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":%s,"type":"private"}}}`, r.FormValue("chat_id"))
	case "setWebhook":
		f.mu.Lock()
		f.webhook = r.FormValue("url")
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case "deleteWebhook":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case "getUpdates":
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeAPI) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeAPI) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.methods {
		if m == method {
			return true
		}
	}
	return false
}

type echoCommands struct{}

func (echoCommands) HandleText(_ context.Context, text string) string {
	return "reply to " + text
}

func newTestTelegram(t *testing.T, api *fakeAPI, webhook bool) *Telegram {
	t.Helper()
	tg, err := New(Options{
		Token:      testToken,
		ChatID:     42,
		UseWebhook: webhook,
		WebhookURL: "https://bot.example.com/",
		Endpoint:   api.srv.URL + "/bot%s/%s",
		Timeout:    2 * time.Second,
	}, echoCommands{})
	require.NoError(t, err)
	return tg
}

func TestSendGoesToConfiguredChat(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, false)

	require.NoError(t, tg.Send(context.Background(), "📭 Trade skipped: paused"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "42", msgs[0].chatID)
	require.Equal(t, "📭 Trade skipped: paused", msgs[0].text)
}

func TestSendRespectsCancelledContext(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tg.Send(ctx, "x"), context.Canceled)
	require.Empty(t, api.messages())
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Options{}, echoCommands{})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab…", truncate("abcdef", 3))
}

func webhookRequest(chatID int64, text string) *http.Request {
	body := fmt.Sprintf(`{"update_id":1,"message":{"message_id":3,"date":0,"chat":{"id":%d,"type":"private"},"text":%q,"entities":[{"type":"bot_command","offset":0,"length":%d}]}}`,
		chatID, text, len(strings.Fields(text)[0]))
	req := httptest.NewRequest(http.MethodPost, WebhookPath(testToken), bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWebhookCommandFromConfiguredChat(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, true)
	require.NoError(t, tg.Start(context.Background()))
	defer tg.Stop()

	api.mu.Lock()
	require.Equal(t, "https://bot.example.com"+WebhookPath(testToken), api.webhook)
	api.mu.Unlock()

	rec := httptest.NewRecorder()
	tg.WebhookHandler().ServeHTTP(rec, webhookRequest(42, "/status"))
	require.Equal(t, http.StatusOK, rec.Code)
	tg.wait()

	msgs := api.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "reply to /status", msgs[0].text)
}

func TestWebhookIgnoresForeignChat(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, true)

	rec := httptest.NewRecorder()
	tg.WebhookHandler().ServeHTTP(rec, webhookRequest(999, "/pause"))
	require.Equal(t, http.StatusOK, rec.Code)
	tg.wait()
	require.Empty(t, api.messages())
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, true)

	rec := httptest.NewRecorder()
	tg.WebhookHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WebhookPath(testToken), nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	tg.WebhookHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath(testToken), strings.NewReader("{")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPollingStartStop(t *testing.T) {
	api := newFakeAPI(t)
	tg := newTestTelegram(t, api, false)

	require.NoError(t, tg.Start(context.Background()))
	require.Eventually(t, func() bool { return api.called("getUpdates") }, 2*time.Second, 10*time.Millisecond)
	require.True(t, api.called("deleteWebhook"))

	done := make(chan struct{})
	go func() {
		tg.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("telegram did not stop")
	}
}
