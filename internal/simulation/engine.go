// Package simulation runs the background loop that makes agents live on
// their own: every tick one agent is picked and acts (writes in a chat,
// replies, makes plans), its state changes are committed in one
// transaction, and the resulting deltas are broadcast to WebSocket clients.
package simulation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	"github.com/velmark/cybercity-backend/internal/data/repos"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

const (
	minSpeed = 0.1
	maxSpeed = 10.0
	// floor for the inter-tick sleep regardless of speed
	minSleep = 200 * time.Millisecond
	// sleep while paused before rechecking
	pausePoll = 250 * time.Millisecond
)

// Status is the engine's externally visible state, returned by Control.
type Status struct {
	Speed       float64 `json:"speed"`
	IsPaused    bool    `json:"is_paused"`
	TickSeconds float64 `json:"tick_seconds"`
}

// Config wires the engine's collaborators. DB, the repos, MemoryStore,
// Generator, Broadcaster and Logger are required; the rest default.
type Config struct {
	DB            *gorm.DB
	Agents        repos.AgentRepo
	Events        repos.EventRepo
	Relationships repos.RelationshipRepo
	Interactions  repos.InteractionRepo
	Memories      repos.MemoryRepo
	Plans         repos.PlanRepo
	GroupChats    repos.GroupChatRepo

	MemoryStore memory.Store
	Generator   llm.TextGenerator
	Broadcaster realtime.Broadcaster
	Logger      *logger.Logger

	// Rand drives every stochastic decision; tests inject a seeded
	// source. Defaults to a time-seeded one.
	Rand *rand.Rand
	// TickSeconds is the nominal pause between ticks at speed 1.0.
	TickSeconds float64
	// DefaultSpeed is the initial speed multiplier.
	DefaultSpeed float64
	Weights      *Weights
}

// Engine owns the simulation loop. A process holds exactly one running
// loop, but nothing global: each Engine is an independent instance.
type Engine struct {
	db            *gorm.DB
	agents        repos.AgentRepo
	events        repos.EventRepo
	relationships repos.RelationshipRepo
	interactions  repos.InteractionRepo
	memories      repos.MemoryRepo
	plans         repos.PlanRepo
	groupChats    repos.GroupChatRepo

	store       memory.Store
	gen         llm.TextGenerator
	broadcaster realtime.Broadcaster
	log         *logger.Logger

	rng         *rand.Rand
	weights     Weights
	tickSeconds float64

	mu      sync.Mutex
	speed   float64
	paused  bool
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewEngine(cfg Config) *Engine {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	weights := DefaultWeights()
	if cfg.Weights != nil {
		weights = *cfg.Weights
	}
	tick := cfg.TickSeconds
	if tick <= 0 {
		tick = 1.0
	}
	speed := cfg.DefaultSpeed
	if speed <= 0 {
		speed = 1.0
	}
	return &Engine{
		db:            cfg.DB,
		agents:        cfg.Agents,
		events:        cfg.Events,
		relationships: cfg.Relationships,
		interactions:  cfg.Interactions,
		memories:      cfg.Memories,
		plans:         cfg.Plans,
		groupChats:    cfg.GroupChats,
		store:         cfg.MemoryStore,
		gen:           cfg.Generator,
		broadcaster:   cfg.Broadcaster,
		log:           cfg.Logger.With("component", "SimulationEngine"),
		rng:           rng,
		weights:       weights,
		tickSeconds:   tick,
		speed:         speed,
	}
}

// Start launches the loop. Calling Start on a running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	go e.run(ctx, e.done)
	e.log.Info("simulation loop started")
}

// Stop cancels the loop and waits for the current tick to finish. Safe to
// call on a stopped engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.running = false
	e.mu.Unlock()

	cancel()
	<-done
	e.log.Info("simulation loop stopped")
}

// Control applies a pause/resume action and/or a speed change and returns
// the resulting status. Unknown actions are ignored; speed is clamped to
// [0.1, 10.0].
func (e *Engine) Control(action string, speed *float64) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch action {
	case "pause":
		e.paused = true
		e.log.Info("simulation paused")
	case "resume":
		e.paused = false
		e.log.Info("simulation resumed")
	}
	if speed != nil {
		e.speed = clamp(*speed, minSpeed, maxSpeed)
		e.log.Info("simulation speed set", "speed", e.speed)
	}
	return Status{Speed: e.speed, IsPaused: e.paused, TickSeconds: e.tickSeconds}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Speed: e.speed, IsPaused: e.paused, TickSeconds: e.tickSeconds}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		paused := e.paused
		speed := e.speed
		e.mu.Unlock()

		if paused {
			if !sleep(ctx, pausePoll) {
				return
			}
			continue
		}

		if err := e.Step(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Error("simulation step failed", "error", err)
		}

		delay := time.Duration(e.tickSeconds / max(speed, minSpeed) * float64(time.Second))
		if delay < minSleep {
			delay = minSleep
		}
		if !sleep(ctx, delay) {
			return
		}
	}
}

// Step executes one tick: pick a random agent, act socially, and maybe
// touch its plans. Each behavior commits its own transaction.
func (e *Engine) Step(ctx context.Context) error {
	agent, err := e.agents.Random(dbctx.New(ctx))
	if err != nil {
		return err
	}
	if agent == nil {
		return nil
	}

	switch e.weights.Select(e.rng) {
	case BehaviorReply:
		replied, err := e.tryReply(ctx, agent.ID)
		if err != nil {
			return err
		}
		if !replied {
			if err := e.initiateChat(ctx, agent.ID); err != nil {
				return err
			}
		}
	default:
		if err := e.initiateChat(ctx, agent.ID); err != nil {
			return err
		}
	}

	if e.weights.RollPlan(e.rng) {
		return e.maybePlan(ctx, agent.ID)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
