// Package prompt builds the ordered message sequence sent to the completion
// service: one system instruction, the retrieved history, then the new
// question.
package prompt

// Roles understood by the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StudyAssistantInstruction is the fixed persona prepended to every prompt.
const StudyAssistantInstruction = `You are a helpful Study Assistant bot. You help students with:
- Academic questions in all subjects (Math, Science, History, Literature, etc.)
- Study tips and techniques (time management, note-taking, exam preparation)
- Explanations of concepts (break down complex topics)
- Homework help (guide students to find answers themselves)

Remember what the student has asked before and reference previous conversations.
Be encouraging, patient, and educational in your responses.`

// Assemble combines the system instruction, the conversation history, and the
// new question into a prompt. The history is passed through unchanged and in
// order; roles are not validated, so a non-alternating history is tolerated.
// No truncation or token budgeting happens here.
func Assemble(instruction string, history []Message, question string) []Message {
	out := make([]Message, 0, len(history)+2)
	out = append(out, Message{Role: RoleSystem, Content: instruction})
	out = append(out, history...)
	out = append(out, Message{Role: RoleUser, Content: question})
	return out
}
