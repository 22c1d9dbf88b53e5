package simulation

import "math/rand"

// Behavior is the action a tick chose for the picked agent.
type Behavior int

const (
	// BehaviorInitiateChat writes a fresh message into one of the agent's
	// group chats.
	BehaviorInitiateChat Behavior = iota
	// BehaviorReply answers a recent message directed at the agent,
	// falling back to BehaviorInitiateChat when there is nothing to
	// answer.
	BehaviorReply
)

// Weights holds the behavior selection probabilities. Plan is rolled
// independently after the social behavior, so a tick can both chat and
// make a plan.
type Weights struct {
	// Social is the probability of entering the social branch at all;
	// outside it the agent initiates a chat anyway, so the split only
	// changes how often replies are attempted.
	Social float64
	// ReplyWithinSocial is the probability, inside the social branch, of
	// trying to reply before initiating.
	ReplyWithinSocial float64
	// Plan is the independent probability of touching the agent's plans.
	Plan float64
}

// DefaultWeights mirrors the tuning the simulation has always run with.
func DefaultWeights() Weights {
	return Weights{
		Social:            0.6,
		ReplyWithinSocial: 0.4,
		Plan:              0.15,
	}
}

// Select draws the social behavior for one tick.
func (w Weights) Select(rng *rand.Rand) Behavior {
	if rng.Float64() < w.Social && rng.Float64() < w.ReplyWithinSocial {
		return BehaviorReply
	}
	return BehaviorInitiateChat
}

// RollPlan draws the independent plan trigger.
func (w Weights) RollPlan(rng *rand.Rand) bool {
	return rng.Float64() < w.Plan
}
