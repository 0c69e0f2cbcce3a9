package provider

import (
	"github.com/google/wire"
	"github.com/xh-polaris/docflow-core-api/biz/application/service"
	"github.com/xh-polaris/docflow-core-api/biz/domain/answer"
	"github.com/xh-polaris/docflow-core-api/biz/domain/session"
	"github.com/xh-polaris/docflow-core-api/biz/infra/auth"
	"github.com/xh-polaris/docflow-core-api/biz/infra/bus"
	"github.com/xh-polaris/docflow-core-api/biz/infra/config"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/notice"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/user"
)

var provider *Provider

func Init() {
	var err error
	provider, err = NewProvider()
	if err != nil {
		panic(err)
	}
}

// Provider 提供controller依赖的对象
type Provider struct {
	Config              *config.Config
	Verifier            auth.Verifier
	Bus                 *bus.Bus
	Orchestrator        *answer.Orchestrator
	ConversationService service.IConversationService
	ChatService         service.IChatService
}

func Get() *Provider {
	return provider
}

// NewOrchestrator 按配置组装回答编排器
func NewOrchestrator(config *config.Config, conversations conversation.MongoMapper, notices notice.MongoMapper,
	users user.MongoMapper, b *bus.Bus, registry *session.Registry) *answer.Orchestrator {
	return answer.New(conversations, notices, users, b, registry,
		answer.WithQuestionTopic(config.Bus.QuestionTopic),
		answer.WithDeadline(config.Answer.Deadline),
		answer.WithHistoryLimit(config.Answer.HistoryLimit),
	)
}

var ApplicationSet = wire.NewSet(
	service.ConversationServiceSet,
	service.ChatServiceSet,
)

var DomainSet = wire.NewSet(
	NewOrchestrator,
	session.NewRegistry,
)

var InfraSet = wire.NewSet(
	config.NewConfig,
	auth.NewJWTVerifier,
	wire.Bind(new(auth.Verifier), new(*auth.JWTVerifier)),
	bus.NewRedisBus,
	conversation.NewConversationMongoMapper,
	notice.NewNoticeMongoMapper,
	user.NewUserMongoMapper,
)

var AllProvider = wire.NewSet(
	ApplicationSet,
	DomainSet,
	InfraSet,
)
