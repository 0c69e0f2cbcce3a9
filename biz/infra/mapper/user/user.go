package user

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User 用户, 只读, 由用户模块维护
type User struct {
	Id         bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Name       string        `json:"name" bson:"name,omitempty"`
	Email      string        `json:"email" bson:"email,omitempty"`
	CreateTime time.Time     `json:"createTime" bson:"create_time"`
	UpdateTime time.Time     `json:"updateTime" bson:"update_time"`
}
