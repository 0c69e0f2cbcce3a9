package errno

import (
	"net/http"

	"github.com/xh-polaris/docflow-core-api/pkg/errorx/code"
)

const (
	ConversationCreateErrCode   = 30001
	ConversationFinalizedCode   = 30002
	ConversationListErrCode     = 30003
	AnswerApplyErrCode          = 30006
	NoticeNotFoundErrCode       = 30101
	UserNotFoundErrCode         = 30102
	ConversationNotFoundErrCode = 30103
)

func init() {
	code.Register(
		ConversationCreateErrCode,
		"创建对话失败",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusInternalServerError),
	)
	code.Register(
		ConversationFinalizedCode,
		"回答已完成, 不可修改",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusConflict),
	)
	code.Register(
		ConversationListErrCode,
		"获取对话记录失败",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusInternalServerError),
	)
	code.Register(
		AnswerApplyErrCode,
		"写入回答失败",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusInternalServerError),
	)
	code.Register(
		NoticeNotFoundErrCode,
		"公告不存在",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusNotFound),
	)
	code.Register(
		UserNotFoundErrCode,
		"用户不存在",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusNotFound),
	)
	code.Register(
		ConversationNotFoundErrCode,
		"对话不存在",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusNotFound),
	)
}
