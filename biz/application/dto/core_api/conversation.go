package core_api

import (
	"github.com/xh-polaris/docflow-core-api/biz/application/dto/basic"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
)

type CreateConversationReq struct {
	NoticeId   string `json:"noticeId" form:"noticeId"`
	PromptText string `json:"promptText" form:"promptText"`
}

func (x *CreateConversationReq) GetNoticeId() string {
	if x != nil {
		return x.NoticeId
	}
	return ""
}

func (x *CreateConversationReq) GetPromptText() string {
	if x != nil {
		return x.PromptText
	}
	return ""
}

type CreateConversationResp struct {
	Resp         *basic.Response            `json:"resp"`
	Conversation *conversation.Conversation `json:"conversation"`
}

type ListConversationReq struct {
	NoticeId string `json:"noticeId" query:"noticeId"`
}

func (x *ListConversationReq) GetNoticeId() string {
	if x != nil {
		return x.NoticeId
	}
	return ""
}

type ListConversationResp struct {
	Resp          *basic.Response              `json:"resp"`
	Conversations []*conversation.Conversation `json:"conversations"`
}
