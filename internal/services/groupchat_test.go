package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

type chatServiceWorld struct {
	svc         GroupChatService
	db          *gorm.DB
	store       *memory.FallbackStore
	broadcaster *captureBroadcaster
	userID      uuid.UUID
}

func newChatServiceWorld(t *testing.T) *chatServiceWorld {
	t.Helper()
	conn := openTestDB(t)
	log := testLogger(t)
	store := memory.NewFallbackStore()
	broadcaster := &captureBroadcaster{}

	svc := NewGroupChatService(
		conn,
		repos.NewGroupChatRepo(conn, log),
		repos.NewAgentRepo(conn, log),
		repos.NewEventRepo(conn, log),
		repos.NewMemoryRepo(conn, log),
		store,
		broadcaster,
		log,
	)
	return &chatServiceWorld{
		svc:         svc,
		db:          conn,
		store:       store,
		broadcaster: broadcaster,
		userID:      uuid.New(),
	}
}

func (w *chatServiceWorld) addAgent(t *testing.T, name string) *types.Agent {
	t.Helper()
	agent := &types.Agent{Name: name, Mood: 0.5, Energy: 100, UserID: w.userID}
	if err := w.db.Create(agent).Error; err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return agent
}

func TestGroupChatCreateRejectsForeignAgents(t *testing.T) {
	w := newChatServiceWorld(t)
	ctx := context.Background()

	foreign := &types.Agent{Name: "Foreign", UserID: uuid.New()}
	if err := w.db.Create(foreign).Error; err != nil {
		t.Fatalf("create foreign agent: %v", err)
	}

	_, err := w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza", AgentIDs: []uuid.UUID{foreign.ID}})
	if !errors.Is(err, ErrInvalidAgents) {
		t.Fatalf("expected ErrInvalidAgents, got %v", err)
	}
	_, err = w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza", AgentIDs: []uuid.UUID{uuid.New()}})
	if !errors.Is(err, ErrInvalidAgents) {
		t.Fatalf("expected ErrInvalidAgents for unknown id, got %v", err)
	}
}

func TestGroupChatUpdateReplacesMembers(t *testing.T) {
	w := newChatServiceWorld(t)
	ctx := context.Background()

	a := w.addAgent(t, "Ava")
	b := w.addAgent(t, "Bolt")

	view, err := w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza", AgentIDs: []uuid.UUID{a.ID}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newName := "Night Market"
	members := []uuid.UUID{b.ID}
	updated, err := w.svc.Update(ctx, w.userID, view.Chat.ID, GroupChatUpdateInput{Name: &newName, AgentIDs: &members})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Chat.Name != "Night Market" {
		t.Fatalf("name not updated: %s", updated.Chat.Name)
	}
	if len(updated.AgentIDs) != 1 || updated.AgentIDs[0] != b.ID {
		t.Fatalf("membership not replaced: %v", updated.AgentIDs)
	}
}

func TestGroupChatSendMessageEmptyChat(t *testing.T) {
	w := newChatServiceWorld(t)
	ctx := context.Background()

	view, err := w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = w.svc.SendMessage(ctx, w.userID, view.Chat.ID, "anyone here?", "neutral")
	if !errors.Is(err, ErrEmptyChat) {
		t.Fatalf("expected ErrEmptyChat, got %v", err)
	}
}

func TestGroupChatSendMessageFansIn(t *testing.T) {
	w := newChatServiceWorld(t)
	ctx := context.Background()

	a := w.addAgent(t, "Ava")
	b := w.addAgent(t, "Bolt")
	view, err := w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza", AgentIDs: []uuid.UUID{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events, err := w.svc.SendMessage(ctx, w.userID, view.Chat.ID, "good evening", "positive")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected one event per member, got %d", len(events))
	}
	for _, e := range events {
		if e.Type != types.EventTypeMessage {
			t.Fatalf("expected %q event, got %q", types.EventTypeMessage, e.Type)
		}
		if len(e.Metadata) == 0 {
			t.Fatalf("group message missing chat metadata")
		}
	}

	// One memory per member, both relationally and in the store.
	var memories int64
	w.db.Model(&types.Memory{}).Count(&memories)
	if memories != 2 {
		t.Fatalf("expected 2 memories, got %d", memories)
	}
	for _, agent := range []*types.Agent{a, b} {
		if got := w.store.Recent(ctx, agent.ID, 10); len(got) != 1 {
			t.Fatalf("store memory missing for %s", agent.Name)
		}
	}

	if len(w.broadcaster.msgs) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(w.broadcaster.msgs))
	}
	for _, m := range w.broadcaster.msgs {
		if m.Type != realtime.MessageEventCreated {
			t.Fatalf("expected event_created broadcasts, got %s", m.Type)
		}
	}
}

func TestGroupChatOwnership(t *testing.T) {
	w := newChatServiceWorld(t)
	ctx := context.Background()

	view, err := w.svc.Create(ctx, w.userID, GroupChatCreateInput{Name: "Plaza"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := w.svc.Get(ctx, uuid.New(), view.Chat.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := w.svc.Delete(ctx, w.userID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
