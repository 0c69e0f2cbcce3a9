package answer

import (
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
)

// PriorMessage 同一公告下的历史消息, 为worker提供上下文
type PriorMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OutboundQuestion 发往worker的提问
type OutboundQuestion struct {
	PromptText          string          `json:"promptText"`
	ExternalDocumentId  string          `json:"externalDocumentId"`
	RequestingUserId    string          `json:"requestingUserId"`
	AnswerCorrelationId string          `json:"answerCorrelationId"`
	PriorMessages       []*PriorMessage `json:"priorMessages,omitempty"`
}

// InboundAnswerEvent worker返回的回答片段
// Done为false时AnswerText是增量, 为true时是完整回答
type InboundAnswerEvent struct {
	AnswerCorrelationId string `json:"answerCorrelationId"`
	ExternalDocumentId  string `json:"externalDocumentId"`
	RequestingUserId    string `json:"requestingUserId"`
	AnswerText          string `json:"answerText"`
	Done                bool   `json:"done"`
	Error               string `json:"error,omitempty"`
}

// AnswerPush 推送给会话的消息
type AnswerPush struct {
	Conversation *conversation.Conversation `json:"conversation"`
	Done         bool                       `json:"done"`
}
