package mockbackend

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryantinsley/arena/client/pkg/gateway"
)

// Behavior scripts how a fake agent answers.
type Behavior int

const (
	// Answer after Delay.
	Answer Behavior = iota
	// Fail after Delay with an error response.
	Fail
	// Never answer.
	Silent
)

// Agent is a scripted stand-in for an LLM provider.
type Agent struct {
	gateway.AgentDescriptor
	Behavior Behavior
	Delay    time.Duration
}

// reply builds the canned answer for message.
func (a Agent) reply(message string) string {
	return fmt.Sprintf("**%s** received your message.\n\n> %s\n\nThis is a simulated answer.", a.Label(), strings.TrimSpace(message))
}

// cost estimates the price of text using 4 characters per token.
func (a Agent) cost(text string) float64 {
	tokens := float64(len(text) / 4)
	c := tokens/1000*a.InputPrice + tokens/1000*a.OutputPrice
	return float64(int64(c*1e6+0.5)) / 1e6
}

// DefaultAgents mirrors the production catalog.
func DefaultAgents() []Agent {
	return []Agent{
		{
			AgentDescriptor: gateway.AgentDescriptor{
				Key:         "azure",
				Name:        "AzureAgent",
				DisplayName: "Azure OpenAI",
				Description: "Microsoft Azure OpenAI Service with GPT models",
				InputPrice:  0.00015,
				OutputPrice: 0.0006,
			},
			Delay: 800 * time.Millisecond,
		},
		{
			AgentDescriptor: gateway.AgentDescriptor{
				Key:         "aws",
				Name:        "AwsAgent",
				DisplayName: "AWS Bedrock",
				Description: "Amazon Bedrock with Nova and Claude models",
				InputPrice:  0.0008,
				OutputPrice: 0.0032,
			},
			Delay: 1500 * time.Millisecond,
		},
	}
}

// ScriptedAgents exercises every outcome the client handles.
func ScriptedAgents() []Agent {
	mk := func(key, name string, b Behavior, d time.Duration) Agent {
		return Agent{
			AgentDescriptor: gateway.AgentDescriptor{
				Key:         key,
				Name:        name,
				DisplayName: strings.ToUpper(key[:1]) + key[1:],
				Description: "Scripted test agent",
				InputPrice:  0.001,
				OutputPrice: 0.002,
			},
			Behavior: b,
			Delay:    d,
		}
	}
	return []Agent{
		mk("fast", "FastAgent", Answer, 100*time.Millisecond),
		mk("slow", "SlowAgent", Answer, 5*time.Second),
		mk("flaky", "FlakyAgent", Fail, 300*time.Millisecond),
		mk("silent", "SilentAgent", Silent, 0),
	}
}

// AgentsForMode returns the catalog for a named mode:
// happy (default), scripted, error or stuck.
func AgentsForMode(mode string) ([]Agent, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "happy":
		return DefaultAgents(), nil
	case "scripted":
		return ScriptedAgents(), nil
	case "error":
		agents := DefaultAgents()
		for i := range agents {
			agents[i].Behavior = Fail
		}
		return agents, nil
	case "stuck":
		agents := DefaultAgents()
		for i := range agents {
			agents[i].Behavior = Silent
		}
		return agents, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
