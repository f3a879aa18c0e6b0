package telegram

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"prayer_time_extractor/internal/app"
	"prayer_time_extractor/internal/domain/calendar"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const adminID = 42

type fakeRuns struct {
	triggerOK bool
	running   bool
	report    *app.RunReport
	err       error
	triggered int
}

func (f *fakeRuns) TriggerNow() bool {
	f.triggered++
	return f.triggerOK
}

func (f *fakeRuns) Running() bool { return f.running }

func (f *fakeRuns) LastReport() (*app.RunReport, error) { return f.report, f.err }

// sentMessages collects the text of every sendMessage call the bot makes.
type sentMessages struct {
	mu    sync.Mutex
	texts []string
}

func (s *sentMessages) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func newTestBot(t *testing.T, runs RunController) (*telebot.Bot, *sentMessages) {
	t.Helper()
	sent := &sentMessages{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		sent.mu.Lock()
		sent.texts = append(sent.texts, params["text"].(string))
		sent.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":2,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	}))
	t.Cleanup(srv.Close)

	bot, err := telebot.NewBot(telebot.Settings{URL: srv.URL, Token: "123:abc", Offline: true, Synchronous: true})
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(io.Discard)
	RegisterAdminHandlers(bot, runs, adminID, logrus.NewEntry(l))
	return bot, sent
}

func command(from int64, text string) telebot.Update {
	return telebot.Update{Message: &telebot.Message{
		ID:     1,
		Text:   text,
		Sender: &telebot.User{ID: from, FirstName: "Aisyah"},
		Chat:   &telebot.Chat{ID: from, Type: telebot.ChatPrivate},
	}}
}

func TestAdminHandlers_RejectsOtherUsers(t *testing.T) {
	runs := &fakeRuns{triggerOK: true}
	bot, sent := newTestBot(t, runs)

	bot.ProcessUpdate(command(7, "/run_now"))

	assert.Equal(t, 0, runs.triggered)
	assert.Equal(t, []string{"Error: you are not allowed to use this bot."}, sent.all())
}

func TestAdminHandlers_RunNow(t *testing.T) {
	runs := &fakeRuns{triggerOK: true}
	bot, sent := newTestBot(t, runs)

	bot.ProcessUpdate(command(adminID, "/run_now"))
	runs.triggerOK = false
	bot.ProcessUpdate(command(adminID, "/run_now"))

	assert.Equal(t, 2, runs.triggered)
	assert.Equal(t, []string{
		"Extraction run started. The report will be sent when it finishes.",
		"An extraction run is already in progress.",
	}, sent.all())
}

func TestAdminHandlers_LastRun(t *testing.T) {
	tests := []struct {
		name string
		runs *fakeRuns
		want string
	}{
		{
			name: "no run yet",
			runs: &fakeRuns{},
			want: "No extraction run has finished yet.",
		},
		{
			name: "run failed before producing a report",
			runs: &fakeRuns{err: errors.New("open output: permission denied"), running: true},
			want: "The last extraction run failed: open output: permission denied\n\nAn extraction run is in progress.",
		},
		{
			name: "finished run",
			runs: &fakeRuns{report: &app.RunReport{RunID: "r1", Range: calendar.Year(2024), Zones: 1, Records: 366}},
			want: (&app.RunReport{RunID: "r1", Range: calendar.Year(2024), Zones: 1, Records: 366}).Summary(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, sent := newTestBot(t, tt.runs)
			bot.ProcessUpdate(command(adminID, "/last_run"))
			assert.Equal(t, []string{tt.want}, sent.all())
		})
	}
}
