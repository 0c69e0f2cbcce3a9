package cst

// 发给外部worker的历史消息角色
const (
	User   = "user"
	System = "system"
)

// 对话发送方
const (
	SenderUser = "USER"
	SenderAI   = "AI"
)

// 回答的兜底内容
const (
	TimeoutFallback = "no answer could be generated in time"
	ErrorSentinel   = "an error occurred while generating the answer"
)

// 会话事件
const (
	EventQuestion = "question"
	EventError    = "error"
)

// mapper层字段枚举
const (
	Id         = "_id"
	NoticeId   = "notice_id"
	UserId     = "user_id"
	Content    = "content"
	Finalized  = "finalized"
	Error      = "error"
	CreateTime = "create_time"
	UpdateTime = "update_time"

	Set = "$set"
)
