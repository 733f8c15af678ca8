package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skins-service/internal/model"
	"skins-service/internal/ws"
	appErr "skins-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubRounds struct{}

func (stubRounds) GetRound(ctx context.Context, roundID int64) (*model.Round, error) {
	if roundID != 7 {
		return nil, appErr.ErrRoundNotFound
	}
	return &model.Round{ID: 7, Status: model.RoundStatusInProgress}, nil
}

func TestHubSequencesPerRound(t *testing.T) {
	hub := ws.NewHub()
	_, a := hub.Subscribe(1)
	_, b := hub.Subscribe(2)

	hub.Publish(1, "scores.updated", nil)
	hub.Publish(1, "round.completed", nil)
	hub.Publish(2, "scores.updated", nil)

	if m := <-a; m.Seq != 1 || m.Type != "scores.updated" {
		t.Fatalf("unexpected first message %+v", m)
	}
	if m := <-a; m.Seq != 2 || m.Type != "round.completed" {
		t.Fatalf("unexpected second message %+v", m)
	}
	if m := <-b; m.Seq != 1 || m.RoundID != 2 {
		t.Fatalf("unexpected message on round 2 %+v", m)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := ws.NewHub()
	id, ch := hub.Subscribe(1)
	hub.Unsubscribe(1, id)

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if n := hub.Subscribers(1); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	// publishing to a round nobody follows is a no-op
	hub.Publish(1, "scores.updated", nil)
}

func TestHandleRoundWSStreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub()
	r := gin.New()
	r.GET("/ws/rounds/:id", ws.NewHandler(hub, stubRounds{}).HandleRoundWS)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rounds/7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot ws.Message
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	if snapshot.Type != ws.EventSnapshot || snapshot.RoundID != 7 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	hub.Publish(7, "round.finalized", map[string]string{"ref": "abc"})

	var msg ws.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event failed: %v", err)
	}
	if msg.Type != "round.finalized" || msg.Seq != 1 {
		t.Fatalf("unexpected event %+v", msg)
	}
}

func TestHandleRoundWSUnknownRound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/rounds/:id", ws.NewHandler(ws.NewHub(), stubRounds{}).HandleRoundWS)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rounds/8"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

// racingRounds publishes a score update while the snapshot is being read.
type racingRounds struct {
	hub *ws.Hub
}

func (r racingRounds) GetRound(ctx context.Context, roundID int64) (*model.Round, error) {
	r.hub.Publish(roundID, "scores.updated", map[string]int{"hole": 3})
	return &model.Round{ID: roundID, Status: model.RoundStatusInProgress}, nil
}

func TestHandleRoundWSKeepsEventsDuringSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub()
	r := gin.New()
	r.GET("/ws/rounds/:id", ws.NewHandler(hub, racingRounds{hub: hub}).HandleRoundWS)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rounds/7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot ws.Message
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	if snapshot.Type != ws.EventSnapshot {
		t.Fatalf("expected snapshot first, got %+v", snapshot)
	}

	var msg ws.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event failed: %v", err)
	}
	if msg.Type != "scores.updated" || msg.Seq != 1 {
		t.Fatalf("expected event published during snapshot, got %+v", msg)
	}
}

func TestHandleRoundWSUnknownRoundLeavesNoSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub()
	r := gin.New()
	r.GET("/ws/rounds/:id", ws.NewHandler(hub, stubRounds{}).HandleRoundWS)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rounds/8"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatalf("expected dial to fail")
	}
	if n := hub.Subscribers(8); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}
