package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-download-bot/internal/config"
	"yt-download-bot/internal/domain/download"
	"yt-download-bot/internal/domain/user"
	"yt-download-bot/internal/platform/sqlite"
	"yt-download-bot/internal/platform/telegram"
	sqliterepo "yt-download-bot/internal/repository/sqlite"
	"yt-download-bot/internal/service/access"
	"yt-download-bot/internal/service/broadcast"
	"yt-download-bot/internal/service/media"
	"yt-download-bot/internal/service/session"
)

const (
	adminID  int64 = 1000
	memberID int64 = 2000
	outsider int64 = 3000
)

type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	blocked  map[int64]bool
	videoErr error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		if f.blocked[v.ChatID] {
			return tgbotapi.Message{}, &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
		}
	case tgbotapi.VideoConfig:
		if f.videoErr != nil {
			return tgbotapi.Message{}, f.videoErr
		}
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: "member"}, nil
}

func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			if v.ChatID == chatID {
				out = append(out, v.Text)
			}
		case tgbotapi.EditMessageTextConfig:
			if v.ChatID == chatID {
				out = append(out, v.Text)
			}
		}
	}
	return out
}

func (f *fakeAPI) videos() []tgbotapi.VideoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.VideoConfig
	for _, c := range f.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeChecker struct {
	members map[int64]bool
}

func (f *fakeChecker) IsMember(_ context.Context, _ string, userID int64) (bool, error) {
	return f.members[userID], nil
}

type fakeExtractor struct {
	info      media.Info
	probeErr  error
	fileSize  int
	downloads int
}

func (f *fakeExtractor) Probe(context.Context, string) (*media.Info, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	info := f.info
	return &info, nil
}

func (f *fakeExtractor) Download(_ context.Context, _ string, dir, name string) (string, error) {
	f.downloads++
	path := filepath.Join(dir, name+".mp4")
	if err := os.WriteFile(path, make([]byte, f.fileSize), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// failingUsers injects storage errors in front of a real repository.
type failingUsers struct {
	user.Repository
	registerErr error
	recordErr   error
	statsErr    error
}

func (f *failingUsers) Register(ctx context.Context, u *user.User) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	return f.Repository.Register(ctx, u)
}

func (f *failingUsers) RecordDownload(ctx context.Context, d *download.Download) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	return f.Repository.RecordDownload(ctx, d)
}

func (f *failingUsers) Stats(ctx context.Context, now time.Time) (*download.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.Repository.Stats(ctx, now)
}

type harness struct {
	bot       *Bot
	api       *fakeAPI
	extractor *fakeExtractor
	checker   *fakeChecker
	repo      *sqliterepo.UserRepository
	dir       string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		api:       &fakeAPI{blocked: map[int64]bool{}},
		extractor: &fakeExtractor{info: media.Info{Title: "Cats & <Dogs>", Duration: 125 * time.Second, DeclaredSize: 1024}, fileSize: 2048},
		checker:   &fakeChecker{members: map[int64]bool{memberID: true}},
		repo:      sqliterepo.NewUserRepository(client.GetDB()),
		dir:       t.TempDir(),
	}
	h.bot = New(Options{
		API:         h.api,
		Gate:        access.NewGate(h.checker, []config.Channel{{Name: "News", Username: "news"}}, adminID),
		Users:       h.repo,
		Sessions:    session.NewMemoryStore(),
		Extractor:   h.extractor,
		Broadcast:   broadcast.NewService(telegram.NewClient(h.api), 0),
		SizePolicy:  media.SizePolicy{Limit: 50 * bytesPerMB, AllowUnknown: true},
		DownloadDir: h.dir,
		BotUsername: "ytbot",
	})
	return h
}

func textUpdate(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "User", UserName: "user"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func (h *harness) handle(t *testing.T, upd tgbotapi.Update) {
	t.Helper()
	h.bot.HandleUpdate(context.Background(), upd)
}

func (h *harness) userIDs(t *testing.T) []int64 {
	t.Helper()
	ids, err := h.repo.IDs(context.Background())
	require.NoError(t, err)
	return ids
}

func TestStartRegistersMemberOnce(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(memberID, "/start"))
	h.handle(t, textUpdate(memberID, "/start"))

	assert.Equal(t, []int64{memberID}, h.userIDs(t))
	assert.Equal(t, []string{textWelcome, textWelcome}, h.api.texts(memberID))
}

func TestStartAdminGetsAdminKeyboard(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(adminID, "/start"))

	assert.Equal(t, []int64{adminID}, h.userIDs(t))
	require.Len(t, h.api.sent, 1)
	msg := h.api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, textAdminWelcome, msg.Text)
	assert.Equal(t, adminStartKeyboard(), msg.ReplyMarkup)
}

func TestOutsiderGetsPromptAndNoWrites(t *testing.T) {
	h := newHarness(t)

	for _, text := range []string{"/start", "https://youtu.be/abc", "hello"} {
		h.handle(t, textUpdate(outsider, text))
	}

	assert.Empty(t, h.userIDs(t))
	assert.Equal(t, []string{textSubscribe, textSubscribe, textSubscribe}, h.api.texts(outsider))
	assert.Zero(t, h.extractor.downloads)

	msg := h.api.sent[0].(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, kb.InlineKeyboard, 2)
	require.NotNil(t, kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://t.me/news", *kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, CallbackCheckSubscription, *kb.InlineKeyboard[1][0].CallbackData)
}

func TestCheckSubscriptionCallback(t *testing.T) {
	h := newHarness(t)
	cb := func(from int64) tgbotapi.Update {
		return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: from},
			Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: from}},
			Data:    CallbackCheckSubscription,
		}}
	}

	h.handle(t, cb(outsider))
	assert.Equal(t, []string{textNotSubscribed}, h.api.texts(outsider))
	assert.Empty(t, h.userIDs(t))

	h.handle(t, cb(memberID))
	assert.Equal(t, []string{textSubscribed}, h.api.texts(memberID))
	assert.Equal(t, []int64{memberID}, h.userIDs(t))
	assert.Len(t, h.api.requests, 2)
}

func TestInvalidURLRejectedWithoutSideEffects(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(memberID, "https://vimeo.com/123"))

	assert.Equal(t, []string{textInvalidURL}, h.api.texts(memberID))
	assert.Empty(t, h.userIDs(t))
}

func TestDownloadSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handle(t, textUpdate(memberID, "https://www.youtube.com/watch?v=abc"))

	u, err := h.repo.GetByID(ctx, memberID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.DownloadCount)
	n, err := h.repo.CountDownloads(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	videos := h.api.videos()
	require.Len(t, videos, 1)
	assert.Contains(t, videos[0].Caption, "Cats &amp; &lt;Dogs&gt;")
	assert.Contains(t, videos[0].Caption, "2:05")
	assert.Contains(t, videos[0].Caption, "@ytbot")
	assert.Equal(t, 125, videos[0].Duration)

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, h.api.requests, 1)
	assert.IsType(t, tgbotapi.DeleteMessageConfig{}, h.api.requests[0])
}

func TestDownloadRejectsOversizedBeforeFetching(t *testing.T) {
	h := newHarness(t)
	h.extractor.info.DeclaredSize = 50*bytesPerMB + 1

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	assert.Zero(t, h.extractor.downloads)
	n, err := h.repo.CountDownloads(context.Background(), memberID)
	require.NoError(t, err)
	assert.Zero(t, n)
	texts := h.api.texts(memberID)
	assert.Equal(t, "❌ The video is larger than 50 MB! Please choose a smaller one.", texts[len(texts)-1])
}

func TestDownloadUnknownSizePolicy(t *testing.T) {
	h := newHarness(t)
	h.extractor.info.DeclaredSize = 0
	h.bot.policy.AllowUnknown = false

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))
	assert.Zero(t, h.extractor.downloads)
	texts := h.api.texts(memberID)
	assert.Equal(t, textSizeUnknown, texts[len(texts)-1])

	h.bot.policy.AllowUnknown = true
	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))
	assert.Equal(t, 1, h.extractor.downloads)
	assert.Len(t, h.api.videos(), 1)
}

func TestDownloadRejectsOversizedActualFile(t *testing.T) {
	h := newHarness(t)
	h.bot.policy.Limit = 1024
	h.extractor.fileSize = 4096

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	assert.Empty(t, h.api.videos())
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadFailureCleansUpAndRecordsNothing(t *testing.T) {
	h := newHarness(t)
	h.api.videoErr = errors.New("Request Entity Too Large")

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	n, err := h.repo.CountDownloads(context.Background(), memberID)
	require.NoError(t, err)
	assert.Zero(t, n)
	texts := h.api.texts(memberID)
	assert.Equal(t, textDownloadFailed, texts[len(texts)-1])
}

func TestProbeFailureShowsGenericError(t *testing.T) {
	h := newHarness(t)
	h.extractor.probeErr = errors.New("Sign in to confirm your age")

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	assert.Zero(t, h.extractor.downloads)
	texts := h.api.texts(memberID)
	assert.Equal(t, textDownloadFailed, texts[len(texts)-1])
}

func TestDownloadStopsWhenRegistrationFails(t *testing.T) {
	h := newHarness(t)
	h.bot.users = &failingUsers{Repository: h.repo, registerErr: errors.New("database is locked")}

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	assert.Zero(t, h.extractor.downloads)
	assert.Empty(t, h.api.videos())
	assert.Equal(t, []string{textDownloadFailed}, h.api.texts(memberID))
	n, err := h.repo.CountDownloads(context.Background(), memberID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordFailureAfterUploadStillCompletes(t *testing.T) {
	h := newHarness(t)
	h.bot.users = &failingUsers{Repository: h.repo, recordErr: errors.New("disk I/O error")}

	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	assert.Len(t, h.api.videos(), 1)
	assert.NotContains(t, h.api.texts(memberID), textDownloadFailed)
	require.Len(t, h.api.requests, 1)
	assert.IsType(t, tgbotapi.DeleteMessageConfig{}, h.api.requests[0])
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdminFailureUsesGenericText(t *testing.T) {
	h := newHarness(t)
	h.bot.users = &failingUsers{Repository: h.repo, statsErr: errors.New("no such table: users")}

	h.handle(t, textUpdate(adminID, BtnStats))

	assert.Equal(t, []string{textAdminError}, h.api.texts(adminID))
}

func TestBroadcastCountsUnreachableUsers(t *testing.T) {
	h := newHarness(t)
	for _, id := range []int64{11, 12, 13} {
		h.checker.members[id] = true
		h.handle(t, textUpdate(id, "/start"))
	}
	h.api.blocked[12] = true

	h.handle(t, textUpdate(adminID, BtnBroadcast))
	h.handle(t, textUpdate(adminID, "maintenance tonight"))

	for _, id := range []int64{11, 13} {
		assert.Equal(t, 1, countText(h.api.texts(id), "maintenance tonight"), id)
	}
	texts := h.api.texts(adminID)
	assert.Equal(t, textBroadcastPrompt, texts[0])
	assert.Equal(t, "📊 Broadcast finished!\n\n✅ Sent: 2\n❌ Failed: 1", texts[len(texts)-1])

	// session is consumed; the next text goes to the download handler
	h.handle(t, textUpdate(adminID, "again"))
	texts = h.api.texts(adminID)
	assert.Equal(t, textInvalidURL, texts[len(texts)-1])
}

func TestCancelClearsPendingBroadcast(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(adminID, BtnBroadcast))
	h.handle(t, textUpdate(adminID, "/cancel"))
	h.handle(t, textUpdate(adminID, "not a broadcast"))

	assert.Equal(t, []string{textBroadcastPrompt, textCancelled, textInvalidURL}, h.api.texts(adminID))
}

func TestAdminLabelsFromNonAdmin(t *testing.T) {
	h := newHarness(t)

	for _, label := range []string{BtnStats, BtnTop, BtnUsers, BtnBroadcast, BtnNormalMode} {
		h.handle(t, textUpdate(memberID, label))
	}
	assert.Empty(t, h.api.texts(memberID))

	h.handle(t, textUpdate(memberID, BtnAdminMode))
	assert.Equal(t, []string{textNoAdminRights}, h.api.texts(memberID))
}

func TestAdminStatsAndTop(t *testing.T) {
	h := newHarness(t)
	h.handle(t, textUpdate(memberID, "/start"))
	h.handle(t, textUpdate(memberID, "https://youtu.be/abc"))

	h.handle(t, textUpdate(adminID, BtnStats))
	h.handle(t, textUpdate(adminID, BtnTop))
	h.handle(t, textUpdate(adminID, BtnUsers))

	texts := h.api.texts(adminID)
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "• Total: 1\n• Today: 1")
	assert.Contains(t, texts[0], "<b>Downloads:</b>\n• Total: 1")
	assert.Contains(t, texts[1], "1. User (@user): 1 downloads")
	assert.Contains(t, texts[2], "1. User (@user): ")
}

func TestTopWithoutUsers(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(adminID, BtnTop))

	assert.Equal(t, []string{textNoStats}, h.api.texts(adminID))
}

func TestHelpAvailableToEveryone(t *testing.T) {
	h := newHarness(t)

	h.handle(t, textUpdate(outsider, BtnHelp))

	texts := h.api.texts(outsider)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Max size: 50 MB")
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	h := newHarness(t)
	upd := textUpdate(memberID, "/start")
	upd.Message.Chat = nil

	assert.NotPanics(t, func() { h.handle(t, upd) })
}

func TestRunDrainsUpdates(t *testing.T) {
	h := newHarness(t)
	updates := make(chan tgbotapi.Update, 3)
	for _, id := range []int64{memberID, memberID, outsider} {
		updates <- textUpdate(id, "/start")
	}
	close(updates)

	require.NoError(t, h.bot.Run(context.Background(), updates))

	assert.Equal(t, []int64{memberID}, h.userIDs(t))
	assert.Len(t, h.api.texts(memberID), 2)
	assert.Len(t, h.api.texts(outsider), 1)
}

func TestFormatDuration(t *testing.T) {
	for d, want := range map[time.Duration]string{
		0:                 "0:00",
		9 * time.Second:   "0:09",
		125 * time.Second: "2:05",
		3 * time.Hour:     "180:00",
	} {
		assert.Equal(t, want, formatDuration(d))
	}
}

func countText(texts []string, want string) int {
	n := 0
	for _, s := range texts {
		if s == want {
			n++
		}
	}
	return n
}
