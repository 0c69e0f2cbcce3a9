package conversation

import (
	"time"

	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Conversation 一条对话消息, 用户提问和模型回答各占一条
type Conversation struct {
	Id         bson.ObjectID `json:"id" bson:"_id"`
	NoticeId   bson.ObjectID `json:"noticeId" bson:"notice_id"`
	UserId     bson.ObjectID `json:"userId" bson:"user_id"`
	Content    string        `json:"content" bson:"content"`       // 只有AI消息的内容可变
	Sender     string        `json:"sender" bson:"sender"`         // USER/AI
	Finalized  bool          `json:"finalized" bson:"finalized"`   // 内容是否已完成
	Error      string        `json:"error,omitempty" bson:"error"` // worker返回的错误
	CreateTime time.Time     `json:"createTime" bson:"create_time"`
	UpdateTime time.Time     `json:"updateTime" bson:"update_time"`
}

// NewPair 创建一条用户提问和与之配对的空回答占位
func NewPair(noticeId, userId bson.ObjectID, prompt string) (question, answer *Conversation) {
	now := time.Now()
	question = &Conversation{
		Id:         bson.NewObjectID(),
		NoticeId:   noticeId,
		UserId:     userId,
		Content:    prompt,
		Sender:     cst.SenderUser,
		Finalized:  true,
		CreateTime: now,
		UpdateTime: now,
	}
	answer = &Conversation{
		Id:       bson.NewObjectID(),
		NoticeId: noticeId,
		UserId:   userId,
		Sender:   cst.SenderAI,
		// 晚于提问1ms, 保证按时间排序时回答在提问之后
		CreateTime: now.Add(time.Millisecond),
		UpdateTime: now,
	}
	return
}

func (c *Conversation) IsAI() bool {
	return c.Sender == cst.SenderAI
}

// Clone 浅拷贝, 字段均为值类型
func (c *Conversation) Clone() *Conversation {
	cp := *c
	return &cp
}
