package notice

import (
	"context"
	"errors"

	"github.com/xh-polaris/docflow-core-api/biz/infra/config"
	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/types/errno"
	"github.com/zeromicro/go-zero/core/stores/monc"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ MongoMapper = (*mongoMapper)(nil)

const (
	collection     = "notice"
	cacheKeyPrefix = "cache:notice:"
)

type MongoMapper interface {
	FindById(ctx context.Context, id string) (*Notice, error)
}

type mongoMapper struct {
	conn *monc.Model
}

func NewNoticeMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

func (m *mongoMapper) FindById(ctx context.Context, id string) (*Notice, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, errorx.New(errno.NoticeNotFoundErrCode)
	}
	var n Notice
	if err = m.conn.FindOne(ctx, cacheKeyPrefix+id, &n, bson.M{cst.Id: oid}); err != nil {
		if errors.Is(err, monc.ErrNotFound) {
			return nil, errorx.New(errno.NoticeNotFoundErrCode)
		}
		return nil, err
	}
	return &n, nil
}
