package chat

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/sponsorlink/marketplace/backend/internal/analysis/intent"
	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
)

// Turn is the pipeline input for one user message.
type Turn struct {
	UserType chat.UserType
	Text     string
}

// Script runs user messages through a compiled playbook.
type Script struct {
	playbook playbook.Playbook
	chain    compose.Runnable[Turn, intent.Decision]
}

// NewScript compiles the normalize -> decide chain for a playbook.
func NewScript(ctx context.Context, p playbook.Playbook) (*Script, error) {
	normalize := compose.InvokableLambda(func(_ context.Context, in Turn) (Turn, error) {
		in.Text = intent.Normalize(in.Text)
		return in, nil
	})
	decide := compose.InvokableLambda(func(_ context.Context, in Turn) (intent.Decision, error) {
		return intent.Decide(p, in.UserType, in.Text), nil
	})

	chain := compose.NewChain[Turn, intent.Decision]()
	chain.AppendLambda(normalize)
	chain.AppendLambda(decide)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script %s: %w", p.ID, err)
	}

	return &Script{playbook: p, chain: runnable}, nil
}

// Playbook returns the playbook the script was compiled from.
func (s *Script) Playbook() playbook.Playbook {
	return s.playbook
}

// Decide picks the bot's answer to text given the conversation's current user type.
func (s *Script) Decide(ctx context.Context, current chat.UserType, text string) (intent.Decision, error) {
	decision, err := s.chain.Invoke(ctx, Turn{UserType: current, Text: text})
	if err != nil {
		return intent.Decision{}, fmt.Errorf("failed to run script %s: %w", s.playbook.ID, err)
	}
	return decision, nil
}
