package notice

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Notice 公告, 只读, 由公告模块维护
type Notice struct {
	Id         bson.ObjectID `json:"id" bson:"_id,omitempty"`
	ExternalId string        `json:"docflowNoticeId" bson:"docflow_notice_id"` // 外部worker中的文档id
	Title      string        `json:"title" bson:"title"`
	Status     string        `json:"status" bson:"status"`
	CreateTime time.Time     `json:"createTime" bson:"create_time"`
}
