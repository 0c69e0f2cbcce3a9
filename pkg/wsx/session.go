package wsx

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/hertz-contrib/websocket"
)

// Frame 服务端下发的消息帧, event为主题
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// InFrame 客户端上行的消息帧, data按event延迟解析
type InFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Session 将一条websocket连接包装为可推送的会话
type Session struct {
	id  string
	cli *HZWSClient
}

func NewSession(id string, cli *HZWSClient) *Session {
	return &Session{id: id, cli: cli}
}

func (s *Session) Id() string { return s.id }

func (s *Session) Emit(event string, data any) error {
	b, err := sonic.Marshal(&Frame{Event: event, Data: data})
	if err != nil {
		return err
	}
	return s.cli.Write(websocket.TextMessage, b)
}

// Next 阻塞读取下一条文本帧, 非文本帧被忽略, 无法解析时返回BadFrameErr且连接仍可用
func (s *Session) Next() (*InFrame, error) {
	for {
		mt, data, err := s.cli.Read()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		f := new(InFrame)
		if err = sonic.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: %v", BadFrameErr, err)
		}
		return f, nil
	}
}

func (s *Session) Close() error { return s.cli.Close() }
