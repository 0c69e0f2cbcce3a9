package core_api

// QuestionEvent 会话中上行的提问
type QuestionEvent struct {
	NoticeId   string `json:"noticeId"`
	PromptText string `json:"promptText"`
}

// ErrorEvent 会话中下行的错误
type ErrorEvent struct {
	Code int32  `json:"code"`
	Msg  string `json:"msg"`
}
