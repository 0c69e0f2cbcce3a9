package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/xh-polaris/docflow-core-api/biz/infra/config"
	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/types/errno"
	"github.com/zeromicro/go-zero/core/stores/monc"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ MongoMapper = (*mongoMapper)(nil)

const (
	collection     = "conversation"
	cacheKeyPrefix = "cache:conversation:"
)

type MongoMapper interface {
	InsertPair(ctx context.Context, question, answer *Conversation) (err error)
	FindById(ctx context.Context, id string) (c *Conversation, err error)
	SaveAnswer(ctx context.Context, c *Conversation) (err error)
	ListByNoticeAndUser(ctx context.Context, noticeId, userId string) (cs []*Conversation, err error)
}

type mongoMapper struct {
	conn *monc.Model
}

func NewConversationMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

// InsertPair 在一个事务中插入提问和回答占位
func (m *mongoMapper) InsertPair(ctx context.Context, question, answer *Conversation) (err error) {
	session, err := m.conn.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)
	if _, err = session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		return m.conn.InsertMany(sessCtx, []any{question, answer})
	}); err != nil {
		logs.CtxErrorf(ctx, "[mapper] [conversation] [InsertPair] question=%s answer=%s err:%s",
			question.Id.Hex(), answer.Id.Hex(), errorx.ErrorWithoutStack(err))
	}
	return err
}

// FindById 查找单条消息, 不存在时返回ConversationNotFound
func (m *mongoMapper) FindById(ctx context.Context, id string) (c *Conversation, err error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, errorx.New(errno.ConversationNotFoundErrCode)
	}
	c = new(Conversation)
	if err = m.conn.FindOne(ctx, cacheKeyPrefix+id, c, bson.M{cst.Id: oid}); err != nil {
		if errors.Is(err, monc.ErrNotFound) {
			return nil, errorx.New(errno.ConversationNotFoundErrCode)
		}
		return nil, err
	}
	return c, nil
}

// SaveAnswer 条件更新回答, 只有未完成的回答可以被修改
// 已完成时返回ConversationFinalized, 成功时c为更新后的记录
func (m *mongoMapper) SaveAnswer(ctx context.Context, c *Conversation) (err error) {
	c.UpdateTime = time.Now()
	filter := bson.M{cst.Id: c.Id, cst.Finalized: false}
	update := bson.M{cst.Set: bson.M{
		cst.Content:    c.Content,
		cst.Finalized:  c.Finalized,
		cst.Error:      c.Error,
		cst.UpdateTime: c.UpdateTime,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = m.conn.FindOneAndUpdate(ctx, cacheKeyPrefix+c.Id.Hex(), c, filter, update, opts); err != nil {
		if errors.Is(err, monc.ErrNotFound) {
			return errorx.New(errno.ConversationFinalizedCode)
		}
		return err
	}
	return nil
}

// ListByNoticeAndUser 按时间正序取出用户在某公告下的全部消息
func (m *mongoMapper) ListByNoticeAndUser(ctx context.Context, noticeId, userId string) (cs []*Conversation, err error) {
	nid, err := bson.ObjectIDFromHex(noticeId)
	if err != nil {
		return nil, errorx.New(errno.NoticeNotFoundErrCode)
	}
	uid, err := bson.ObjectIDFromHex(userId)
	if err != nil {
		return nil, errorx.New(errno.UserNotFoundErrCode)
	}
	opts := options.Find().SetSort(bson.D{{Key: cst.CreateTime, Value: 1}, {Key: cst.Id, Value: 1}})
	if err = m.conn.Find(ctx, &cs, bson.M{cst.NoticeId: nid, cst.UserId: uid}, opts); err != nil {
		logs.CtxErrorf(ctx, "[mapper] [conversation] [ListByNoticeAndUser] notice=%s user=%s err:%s",
			noticeId, userId, errorx.ErrorWithoutStack(err))
		return nil, err
	}
	return cs, nil
}
