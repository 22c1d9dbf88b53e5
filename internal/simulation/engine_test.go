package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	"github.com/velmark/cybercity-backend/internal/data/db"
	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

// captureBroadcaster records every message; the mutex matters for tests
// that observe a running loop from the test goroutine.
type captureBroadcaster struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (c *captureBroadcaster) Broadcast(m realtime.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *captureBroadcaster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *captureBroadcaster) typeSequence() []realtime.MessageType {
	out := make([]realtime.MessageType, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Type)
	}
	return out
}

// stubGenerator returns fixed text, or reports a miss when ok is false the
// way a disabled client does.
type stubGenerator struct {
	text    string
	ok      bool
	prompts []llm.MessagePrompt
}

func (s *stubGenerator) GenerateAction(context.Context, llm.ActionPrompt) (string, bool) {
	return "", false
}

func (s *stubGenerator) GenerateMessage(_ context.Context, p llm.MessagePrompt) (string, bool) {
	s.prompts = append(s.prompts, p)
	return s.text, s.ok
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateCore(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

type testWorld struct {
	engine      *Engine
	db          *gorm.DB
	broadcaster *captureBroadcaster
	gen         *stubGenerator
	store       *memory.FallbackStore
	agents      repos.AgentRepo
	relations   repos.RelationshipRepo
	events      repos.EventRepo
	plans       repos.PlanRepo
	chats       repos.GroupChatRepo
	userID      uuid.UUID
}

func newTestWorld(t *testing.T, seed int64) *testWorld {
	t.Helper()
	conn := openTestDB(t)
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	w := &testWorld{
		db:          conn,
		broadcaster: &captureBroadcaster{},
		gen:         &stubGenerator{},
		store:       memory.NewFallbackStore(),
		agents:      repos.NewAgentRepo(conn, log),
		relations:   repos.NewRelationshipRepo(conn, log),
		events:      repos.NewEventRepo(conn, log),
		plans:       repos.NewPlanRepo(conn, log),
		chats:       repos.NewGroupChatRepo(conn, log),
	}
	w.engine = NewEngine(Config{
		DB:            conn,
		Agents:        w.agents,
		Events:        w.events,
		Relationships: w.relations,
		Interactions:  repos.NewInteractionRepo(conn, log),
		Memories:      repos.NewMemoryRepo(conn, log),
		Plans:         w.plans,
		GroupChats:    w.chats,
		MemoryStore:   w.store,
		Generator:     w.gen,
		Broadcaster:   w.broadcaster,
		Logger:        log,
		Rand:          rand.New(rand.NewSource(seed)),
	})

	user := &types.User{Username: "tester", Email: "tester@example.com", HashedPassword: "x"}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	w.userID = user.ID
	return w
}

func (w *testWorld) addAgent(t *testing.T, name string, mood float64, energy int) *types.Agent {
	t.Helper()
	agent := &types.Agent{Name: name, Mood: mood, Energy: energy, UserID: w.userID}
	if err := w.db.Create(agent).Error; err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
	return agent
}

func (w *testWorld) addChat(t *testing.T, name string, members ...*types.Agent) *types.GroupChat {
	t.Helper()
	chat := &types.GroupChat{Name: name, CreatedByUserID: w.userID, IsActive: true}
	if err := w.db.Create(chat).Error; err != nil {
		t.Fatalf("create chat %s: %v", name, err)
	}
	dbc := dbctx.New(context.Background())
	for _, a := range members {
		if err := w.chats.AddAgent(dbc, chat.ID, a.ID); err != nil {
			t.Fatalf("add agent to chat: %v", err)
		}
	}
	return chat
}

func TestControlClampsSpeed(t *testing.T) {
	w := newTestWorld(t, 1)

	high := 99.0
	st := w.engine.Control("", &high)
	if st.Speed != 10.0 {
		t.Fatalf("speed = %v, want clamp to 10.0", st.Speed)
	}

	low := 0.001
	st = w.engine.Control("", &low)
	if st.Speed != 0.1 {
		t.Fatalf("speed = %v, want clamp to 0.1", st.Speed)
	}

	st = w.engine.Control("pause", nil)
	if !st.IsPaused {
		t.Fatal("pause action did not pause")
	}
	if st.Speed != 0.1 {
		t.Fatalf("pause reset speed to %v", st.Speed)
	}

	st = w.engine.Control("resume", nil)
	if st.IsPaused {
		t.Fatal("resume action did not resume")
	}
	if st.TickSeconds != 1.0 {
		t.Fatalf("tick seconds = %v, want default 1.0", st.TickSeconds)
	}
}

func TestControlIgnoresUnknownAction(t *testing.T) {
	w := newTestWorld(t, 1)
	w.engine.Control("pause", nil)
	st := w.engine.Control("explode", nil)
	if !st.IsPaused {
		t.Fatal("unknown action changed the paused flag")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	w := newTestWorld(t, 1)

	w.engine.Start()
	w.engine.Start() // second call must be a no-op

	done := make(chan struct{})
	go func() {
		w.engine.Stop()
		w.engine.Stop() // stopping twice must not hang or panic
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestStepEmptyWorldIsNoOp(t *testing.T) {
	w := newTestWorld(t, 1)
	if err := w.engine.Step(context.Background()); err != nil {
		t.Fatalf("Step on empty world: %v", err)
	}
	if len(w.broadcaster.msgs) != 0 {
		t.Fatalf("empty world produced %d broadcasts", len(w.broadcaster.msgs))
	}
}

func TestWeightsDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weights := DefaultWeights()

	const n = 20000
	replies, plans := 0, 0
	for i := 0; i < n; i++ {
		if weights.Select(rng) == BehaviorReply {
			replies++
		}
		if weights.RollPlan(rng) {
			plans++
		}
	}

	replyFrac := float64(replies) / n
	if replyFrac < 0.21 || replyFrac > 0.27 { // expect 0.6*0.4 = 0.24
		t.Fatalf("reply fraction = %.3f, want around 0.24", replyFrac)
	}
	planFrac := float64(plans) / n
	if planFrac < 0.13 || planFrac > 0.17 {
		t.Fatalf("plan fraction = %.3f, want around 0.15", planFrac)
	}
}

func TestInitiateChatWithoutChatsDoesNothing(t *testing.T) {
	w := newTestWorld(t, 2)
	loner := w.addAgent(t, "Loner", 0.5, 80)

	if err := w.engine.initiateChat(context.Background(), loner.ID); err != nil {
		t.Fatalf("initiateChat: %v", err)
	}
	if len(w.broadcaster.msgs) != 0 {
		t.Fatalf("agent without chats broadcast %d messages", len(w.broadcaster.msgs))
	}

	var count int64
	w.db.Model(&types.Event{}).Count(&count)
	if count != 0 {
		t.Fatalf("agent without chats created %d events", count)
	}
}

func TestInitiateChatAloneInChatDoesNothing(t *testing.T) {
	w := newTestWorld(t, 2)
	solo := w.addAgent(t, "Solo", 0.5, 80)
	w.addChat(t, "Empty Plaza", solo)

	if err := w.engine.initiateChat(context.Background(), solo.ID); err != nil {
		t.Fatalf("initiateChat: %v", err)
	}
	if len(w.broadcaster.msgs) != 0 {
		t.Fatal("agent alone in a chat still broadcast")
	}
	var count int64
	w.db.Model(&types.Event{}).Count(&count)
	if count != 0 {
		t.Fatal("agent alone in a chat still created an event")
	}
}

func TestInitiateChatFallbackMessage(t *testing.T) {
	w := newTestWorld(t, 3)
	alice := w.addAgent(t, "Alice", 0.5, 80)
	bob := w.addAgent(t, "Bob", 0.5, 80)
	w.addChat(t, "Main Square", alice, bob)

	if err := w.engine.initiateChat(context.Background(), alice.ID); err != nil {
		t.Fatalf("initiateChat: %v", err)
	}

	var event types.Event
	if err := w.db.First(&event).Error; err != nil {
		t.Fatalf("no event created: %v", err)
	}
	if event.Type != types.EventTypeGroupChat {
		t.Fatalf("event type = %q, want %q", event.Type, types.EventTypeGroupChat)
	}
	if event.ActorID == nil || *event.ActorID != alice.ID {
		t.Fatalf("event actor = %v, want %s", event.ActorID, alice.ID)
	}
	if event.TargetID != nil {
		t.Fatal("group chat event must have no target")
	}
	// generator is disabled, so the canned fallback text must appear
	if !strings.Contains(event.Description, "Shared a thought in chat") {
		t.Fatalf("event description %q lacks fallback text", event.Description)
	}
	if !strings.Contains(event.Description, "Main Square") {
		t.Fatalf("event description %q lacks the chat name", event.Description)
	}
	if len(event.Metadata) == 0 {
		t.Fatal("group chat event carries no metadata")
	}
}

func TestInitiateChatTouchesMembersAndRelations(t *testing.T) {
	w := newTestWorld(t, 4)
	alice := w.addAgent(t, "Alice", 0.5, 80)
	bob := w.addAgent(t, "Bob", 0.5, 50)
	w.addChat(t, "Main Square", alice, bob)

	if err := w.engine.initiateChat(context.Background(), alice.ID); err != nil {
		t.Fatalf("initiateChat: %v", err)
	}

	dbc := dbctx.New(context.Background())

	rel, err := w.relations.GetOrCreate(dbc, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("load relationship: %v", err)
	}
	if rel.Affinity <= 0 || rel.Affinity > 0.06 {
		t.Fatalf("affinity = %v, want small positive delta", rel.Affinity)
	}
	if rel.Strength < 0.5099 || rel.Strength > 0.5101 {
		t.Fatalf("strength = %v, want 0.51", rel.Strength)
	}

	var bobRow types.Agent
	if err := w.db.First(&bobRow, "id = ?", bob.ID).Error; err != nil {
		t.Fatalf("reload bob: %v", err)
	}
	if bobRow.Energy != 49 {
		t.Fatalf("member energy = %d, want 49", bobRow.Energy)
	}

	var aliceRow types.Agent
	if err := w.db.First(&aliceRow, "id = ?", alice.ID).Error; err != nil {
		t.Fatalf("reload alice: %v", err)
	}
	if !strings.Contains(aliceRow.CurrentTask, "Main Square") {
		t.Fatalf("sender task = %q, want chat name in it", aliceRow.CurrentTask)
	}
	if aliceRow.Mood < 0 || aliceRow.Mood > 1 {
		t.Fatalf("sender mood %v out of range", aliceRow.Mood)
	}

	var interactions int64
	w.db.Model(&types.Interaction{}).Where("agent_id = ?", bob.ID).Count(&interactions)
	if interactions != 1 {
		t.Fatalf("member has %d interactions, want 1", interactions)
	}

	seq := w.broadcaster.typeSequence()
	if len(seq) < 4 {
		t.Fatalf("broadcast sequence too short: %v", seq)
	}
	want := []realtime.MessageType{
		realtime.MessageEventCreated,
		realtime.MessageAgentUpdate,
		realtime.MessageRelationChanged,
		realtime.MessageAgentUpdate,
	}
	for i, typ := range want {
		if seq[i] != typ {
			t.Fatalf("broadcast[%d] = %q, want %q (full: %v)", i, seq[i], typ, seq)
		}
	}
	if len(seq) == 5 && seq[4] != realtime.MessageMemoryCreated {
		t.Fatalf("trailing broadcast = %q, want memory_created", seq[4])
	}
}

func TestInitiateChatRepeatedKeepsStateInRange(t *testing.T) {
	w := newTestWorld(t, 5)
	alice := w.addAgent(t, "Alice", 0.95, 2)
	bob := w.addAgent(t, "Bob", 0.05, 1)
	w.addChat(t, "Main Square", alice, bob)

	for i := 0; i < 40; i++ {
		if err := w.engine.initiateChat(context.Background(), alice.ID); err != nil {
			t.Fatalf("initiateChat #%d: %v", i, err)
		}
	}

	var rows []types.Agent
	if err := w.db.Find(&rows).Error; err != nil {
		t.Fatalf("load agents: %v", err)
	}
	for _, a := range rows {
		if a.Mood < 0 || a.Mood > 1 {
			t.Fatalf("agent %s mood %v escaped [0,1]", a.Name, a.Mood)
		}
		if a.Energy < 0 || a.Energy > 100 {
			t.Fatalf("agent %s energy %d escaped [0,100]", a.Name, a.Energy)
		}
	}

	var rels []types.Relationship
	if err := w.db.Find(&rels).Error; err != nil {
		t.Fatalf("load relationships: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("repeated chats produced %d relationship rows for one pair, want 1", len(rels))
	}
	if rels[0].Affinity < -1 || rels[0].Affinity > 1 {
		t.Fatalf("affinity %v escaped [-1,1]", rels[0].Affinity)
	}
	if rels[0].Strength > 1 {
		t.Fatalf("strength %v escaped cap 1", rels[0].Strength)
	}
}

func TestTryReplyWithoutTriggerReturnsFalse(t *testing.T) {
	w := newTestWorld(t, 6)
	agent := w.addAgent(t, "Silent", 0.5, 80)

	replied, err := w.engine.tryReply(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("tryReply: %v", err)
	}
	if replied {
		t.Fatal("replied without any directed message")
	}
	if len(w.broadcaster.msgs) != 0 {
		t.Fatal("no-reply attempt still broadcast")
	}
}

func TestTryReplyIgnoresStaleAndGroupEvents(t *testing.T) {
	w := newTestWorld(t, 6)
	agent := w.addAgent(t, "Target", 0.5, 80)
	sender := w.addAgent(t, "Sender", 0.5, 80)

	stale := &types.Event{
		Description: fmt.Sprintf("%s sent a message to %s: \"old news\"", sender.Name, agent.Name),
		Type:        types.EventTypeDirectChat,
		ActorID:     &sender.ID,
		TargetID:    &agent.ID,
		CreatedAt:   time.Now().UTC().Add(-10 * time.Minute),
	}
	if err := w.db.Create(stale).Error; err != nil {
		t.Fatalf("create stale event: %v", err)
	}
	group := &types.Event{
		Description: fmt.Sprintf("%s wrote in chat \"Main Square\": \"hi all\"", sender.Name),
		Type:        types.EventTypeGroupChat,
		ActorID:     &sender.ID,
		TargetID:    &agent.ID,
	}
	if err := w.db.Create(group).Error; err != nil {
		t.Fatalf("create group event: %v", err)
	}

	replied, err := w.engine.tryReply(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("tryReply: %v", err)
	}
	if replied {
		t.Fatal("replied to a stale or group event")
	}
}

func TestTryReplyFallbackByAffinity(t *testing.T) {
	cases := []struct {
		name     string
		affinity float64
		want     string
	}{
		{"friendly", 0.5, "Thanks! I'm doing well too."},
		{"hostile", -0.5, "Hm, interesting..."},
		{"neutral", 0.0, "Got it."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorld(t, 7)
			agent := w.addAgent(t, "Target", 0.5, 80)
			sender := w.addAgent(t, "Sender", 0.5, 80)

			if tc.affinity != 0 {
				rel := &types.Relationship{
					SourceAgentID: agent.ID,
					TargetAgentID: sender.ID,
					Affinity:      tc.affinity,
					Strength:      0.5,
				}
				if err := w.db.Create(rel).Error; err != nil {
					t.Fatalf("seed relationship: %v", err)
				}
			}

			trigger := &types.Event{
				Description: fmt.Sprintf("%s sent a message to %s: \"hey\"", sender.Name, agent.Name),
				Type:        types.EventTypeDirectChat,
				ActorID:     &sender.ID,
				TargetID:    &agent.ID,
			}
			if err := w.db.Create(trigger).Error; err != nil {
				t.Fatalf("create trigger: %v", err)
			}

			replied, err := w.engine.tryReply(context.Background(), agent.ID)
			if err != nil {
				t.Fatalf("tryReply: %v", err)
			}
			if !replied {
				t.Fatal("did not reply to a fresh direct message")
			}

			var reply types.Event
			err = w.db.Where("actor_id = ? AND target_id = ?", agent.ID, sender.ID).First(&reply).Error
			if err != nil {
				t.Fatalf("reply event missing: %v", err)
			}
			if !strings.Contains(reply.Description, tc.want) {
				t.Fatalf("reply %q lacks fallback %q", reply.Description, tc.want)
			}
			if reply.Type != types.EventTypeDirectChat {
				t.Fatalf("reply type = %q, want %q", reply.Type, types.EventTypeDirectChat)
			}
		})
	}
}

func TestTryReplyUpdatesStateAndBroadcasts(t *testing.T) {
	w := newTestWorld(t, 8)
	agent := w.addAgent(t, "Target", 0.5, 80)
	sender := w.addAgent(t, "Sender", 0.5, 80)

	trigger := &types.Event{
		Description: fmt.Sprintf("%s sent a message to %s: \"hello there\"", sender.Name, agent.Name),
		Type:        types.EventTypeDirectChat,
		ActorID:     &sender.ID,
		TargetID:    &agent.ID,
	}
	if err := w.db.Create(trigger).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	replied, err := w.engine.tryReply(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("tryReply: %v", err)
	}
	if !replied {
		t.Fatal("did not reply")
	}

	var row types.Agent
	if err := w.db.First(&row, "id = ?", agent.ID).Error; err != nil {
		t.Fatalf("reload agent: %v", err)
	}
	if row.CurrentTask != "replying to Sender" {
		t.Fatalf("current task = %q", row.CurrentTask)
	}

	rel, err := w.relations.GetOrCreate(dbctx.New(context.Background()), agent.ID, sender.ID)
	if err != nil {
		t.Fatalf("load relationship: %v", err)
	}
	if rel.Affinity < 0.02 || rel.Affinity > 0.08 {
		t.Fatalf("affinity = %v, want within the neutral reply delta", rel.Affinity)
	}
	if rel.Strength < 0.5099 || rel.Strength > 0.5101 {
		t.Fatalf("strength = %v, want 0.51", rel.Strength)
	}

	seq := w.broadcaster.typeSequence()
	if len(seq) < 3 {
		t.Fatalf("broadcast sequence too short: %v", seq)
	}
	want := []realtime.MessageType{
		realtime.MessageEventCreated,
		realtime.MessageAgentUpdate,
		realtime.MessageRelationChanged,
	}
	for i, typ := range want {
		if seq[i] != typ {
			t.Fatalf("broadcast[%d] = %q, want %q", i, seq[i], typ)
		}
	}
}

func TestMaybePlanCreatesWhenNoneOpen(t *testing.T) {
	w := newTestWorld(t, 9)
	agent := w.addAgent(t, "Planner", 0.5, 80)

	if err := w.engine.maybePlan(context.Background(), agent.ID); err != nil {
		t.Fatalf("maybePlan: %v", err)
	}

	plans, err := w.plans.ListByAgent(dbctx.New(context.Background()), agent.ID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("have %d plans, want 1", len(plans))
	}
	if plans[0].Status != types.PlanStatusActive && plans[0].Status != types.PlanStatusPlanned {
		t.Fatalf("plan status = %q", plans[0].Status)
	}
	if plans[0].Title == "" || plans[0].Description == "" {
		t.Fatalf("plan missing text: %+v", plans[0])
	}
	// plans are internal state, never broadcast
	if len(w.broadcaster.msgs) != 0 {
		t.Fatalf("plan creation broadcast %d messages", len(w.broadcaster.msgs))
	}
}

func TestMaybePlanLowMoodPicksRecoveryTitle(t *testing.T) {
	w := newTestWorld(t, 10)
	agent := w.addAgent(t, "Gloomy", 0.1, 20)

	if err := w.engine.maybePlan(context.Background(), agent.ID); err != nil {
		t.Fatalf("maybePlan: %v", err)
	}

	plans, err := w.plans.ListByAgent(dbctx.New(context.Background()), agent.ID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("have %d plans, want 1", len(plans))
	}
	found := false
	for _, title := range planTitlesNegative {
		if plans[0].Title == title {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("low-mood plan title %q not from the recovery pool", plans[0].Title)
	}
}

func TestMaybePlanMostlySkipsWhenOneIsOpen(t *testing.T) {
	w := newTestWorld(t, 11)
	agent := w.addAgent(t, "Busy", 0.5, 80)

	if err := w.engine.maybePlan(context.Background(), agent.ID); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	for i := 0; i < 50; i++ {
		if err := w.engine.maybePlan(context.Background(), agent.ID); err != nil {
			t.Fatalf("maybePlan #%d: %v", i, err)
		}
	}

	plans, err := w.plans.ListByAgent(dbctx.New(context.Background()), agent.ID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	// stacking happens with p=0.1 per call; 50 calls should add a few,
	// nowhere near one per call
	if len(plans) < 1 || len(plans) > 20 {
		t.Fatalf("have %d plans after 50 rolls, want a small stack", len(plans))
	}
}

func TestStepRunsEndToEnd(t *testing.T) {
	w := newTestWorld(t, 12)
	alice := w.addAgent(t, "Alice", 0.5, 80)
	bob := w.addAgent(t, "Bob", 0.5, 80)
	w.addChat(t, "Main Square", alice, bob)

	for i := 0; i < 25; i++ {
		if err := w.engine.Step(context.Background()); err != nil {
			t.Fatalf("Step #%d: %v", i, err)
		}
	}

	var events int64
	w.db.Model(&types.Event{}).Count(&events)
	if events == 0 {
		t.Fatal("25 steps produced no events")
	}
	if len(w.broadcaster.msgs) == 0 {
		t.Fatal("25 steps produced no broadcasts")
	}
}

func TestGeneratedMessageUsedWhenAvailable(t *testing.T) {
	w := newTestWorld(t, 13)
	w.gen.text = "The neon rain never stops here."
	w.gen.ok = true

	alice := w.addAgent(t, "Alice", 0.5, 80)
	bob := w.addAgent(t, "Bob", 0.5, 80)
	w.addChat(t, "Main Square", alice, bob)

	if err := w.engine.initiateChat(context.Background(), alice.ID); err != nil {
		t.Fatalf("initiateChat: %v", err)
	}

	var event types.Event
	if err := w.db.First(&event).Error; err != nil {
		t.Fatalf("no event: %v", err)
	}
	if !strings.Contains(event.Description, w.gen.text) {
		t.Fatalf("event %q does not carry the generated text", event.Description)
	}
	if len(w.gen.prompts) != 1 {
		t.Fatalf("generator called %d times, want 1", len(w.gen.prompts))
	}
	p := w.gen.prompts[0]
	if p.ReceiverName != "chat members" {
		t.Fatalf("receiver = %q, want %q", p.ReceiverName, "chat members")
	}
	if p.Affinity != 0 {
		t.Fatalf("group chat prompt affinity = %v, want 0", p.Affinity)
	}
	if !strings.Contains(p.TopicHint, "Main Square") {
		t.Fatalf("topic hint %q lacks the chat name", p.TopicHint)
	}
}

func TestHelpers(t *testing.T) {
	if emotionFromMood(0.7) != emotionPositive || emotionFromMood(0.9) != emotionPositive {
		t.Fatal("high mood must map to positive")
	}
	if emotionFromMood(0.4) != emotionNeutral || emotionFromMood(0.69) != emotionNeutral {
		t.Fatal("middle mood must map to neutral")
	}
	if emotionFromMood(0.39) != emotionNegative || emotionFromMood(0) != emotionNegative {
		t.Fatal("low mood must map to negative")
	}

	if got := clampMood(1.7); got != 1.0 {
		t.Fatalf("clampMood(1.7) = %v", got)
	}
	if got := clampMood(-0.2); got != 0.0 {
		t.Fatalf("clampMood(-0.2) = %v", got)
	}
	if got := clampEnergy(140); got != 100 {
		t.Fatalf("clampEnergy(140) = %d", got)
	}
	if got := clampEnergy(-5); got != 0 {
		t.Fatalf("clampEnergy(-5) = %d", got)
	}

	if got := extractQuoted(`Neo replied to Trinity: "hello"`); got != "hello" {
		t.Fatalf("extractQuoted = %q", got)
	}
	if got := extractQuoted("plain text"); got != "plain text" {
		t.Fatalf("extractQuoted fallback = %q", got)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate below cap = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("truncate ascii = %q", got)
	}
	// "héllo" is h + 2-byte é + llo; cutting at byte 2 lands inside é.
	got := truncate("héllo", 2)
	if got != "h" {
		t.Fatalf("truncate mid-rune = %q", got)
	}
	if !utf8.ValidString(truncate("городская жизнь", 13)) {
		t.Fatal("truncate produced invalid UTF-8")
	}
}

func waitForBroadcasts(t *testing.T, c *captureBroadcaster, min int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= min {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("loop produced %d broadcasts, wanted at least %d", c.count(), min)
}

func TestRunLoopHonorsPauseAndStop(t *testing.T) {
	w := newTestWorld(t, 11)
	w.gen.text, w.gen.ok = "Evening walk along the canal?", true
	ava := w.addAgent(t, "Ava", 0.7, 90)
	bolt := w.addAgent(t, "Bolt", 0.6, 90)
	w.addChat(t, "Plaza", ava, bolt)

	speed := maxSpeed
	w.engine.Control("set_speed", &speed)
	w.engine.Start()
	defer w.engine.Stop()

	waitForBroadcasts(t, w.broadcaster, 1)

	w.engine.Control("pause", nil)
	// Let any in-flight step drain and the loop settle into pause polling.
	time.Sleep(500 * time.Millisecond)
	frozen := w.broadcaster.count()
	time.Sleep(800 * time.Millisecond)
	if got := w.broadcaster.count(); got != frozen {
		t.Fatalf("paused loop kept broadcasting: %d -> %d", frozen, got)
	}

	w.engine.Control("resume", nil)
	waitForBroadcasts(t, w.broadcaster, frozen+1)

	w.engine.Stop()
	final := w.broadcaster.count()
	time.Sleep(600 * time.Millisecond)
	if got := w.broadcaster.count(); got != final {
		t.Fatalf("stopped loop kept broadcasting: %d -> %d", final, got)
	}
}
