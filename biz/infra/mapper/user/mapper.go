package user

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
	collection     = "user"
	cacheKeyPrefix = "cache:user:"
)

type MongoMapper interface {
	FindById(ctx context.Context, id string) (*User, error)
}

type mongoMapper struct {
	conn *monc.Model
}

func NewUserMongoMapper(config *config.Config) MongoMapper {
	conn := monc.MustNewModel(config.Mongo.URL, config.Mongo.DB, collection, config.Cache)
	return &mongoMapper{conn: conn}
}

func (m *mongoMapper) FindById(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, errorx.New(errno.UserNotFoundErrCode)
	}
	var u User
	if err = m.conn.FindOne(ctx, cacheKeyPrefix+id, &u, bson.M{cst.Id: oid}); err != nil {
		if errors.Is(err, monc.ErrNotFound) {
			return nil, errorx.New(errno.UserNotFoundErrCode)
		}
		return nil, err
	}
	return &u, nil
}
