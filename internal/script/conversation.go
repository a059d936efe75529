package script

import "interviewcast/internal/llm"

type TurnKind int

const (
	KindSystem TurnKind = iota
	KindInstruction
	KindReply
)

func (k TurnKind) role() llm.Role {
	switch k {
	case KindSystem:
		return llm.RoleSystem
	case KindReply:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

type ConversationTurn struct {
	Kind    TurnKind
	Content string
}

// Conversation is the append-only memory sent with every loop call. The
// system turn is fixed at construction and always comes first.
type Conversation struct {
	turns []ConversationTurn
}

func NewConversation(system string) *Conversation {
	return &Conversation{turns: []ConversationTurn{{Kind: KindSystem, Content: system}}}
}

func (c *Conversation) Instruct(text string) {
	c.turns = append(c.turns, ConversationTurn{Kind: KindInstruction, Content: text})
}

func (c *Conversation) Reply(text string) {
	c.turns = append(c.turns, ConversationTurn{Kind: KindReply, Content: text})
}

func (c *Conversation) Len() int { return len(c.turns) }

// Turns returns a copy of the memory.
func (c *Conversation) Turns() []ConversationTurn {
	out := make([]ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.turns))
	for i, t := range c.turns {
		out[i] = llm.Message{Role: t.Kind.role(), Content: t.Content}
	}
	return out
}
