package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
	chatservice "github.com/sponsorlink/marketplace/backend/internal/service/chat"
)

func setup(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(playbook.NewMemoryStore(playbook.Seed()), chatservice.Options{ReplyDelay: time.Millisecond}, zap.NewNop())

	r := chi.NewRouter()
	New(chatSvc, zap.NewNop(), 8).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		chatSvc.Close()
		srv.Close()
	})
	return srv, chatSvc
}

// readEvents collects "event:" names until want events were seen.
func readEvents(t *testing.T, scanner *bufio.Scanner, want int) []string {
	t.Helper()
	var events []string
	for len(events) < want && scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	require.Len(t, events, want)
	return events
}

func TestEventsStreamsSnapshotThenMessages(t *testing.T) {
	srv, chatSvc := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := chatSvc.CreateSession(ctx, "")
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+conv.ID()+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	assert.Equal(t, []string{"snapshot"}, readEvents(t, scanner, 1))

	conv.AddMessage(ctx, "We host conferences", chat.SenderUser)
	assert.Equal(t, []string{"message", "message"}, readEvents(t, scanner, 2))

	require.NoError(t, chatSvc.CloseSession(ctx, conv.ID()))
	assert.Equal(t, []string{"closed"}, readEvents(t, scanner, 1))
}

func TestEventsUnknownSession(t *testing.T) {
	srv, _ := setup(t)

	resp, err := http.Get(srv.URL + "/sessions/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
