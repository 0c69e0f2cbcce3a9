package wsx

import (
	"errors"
	"time"

	"github.com/hertz-contrib/websocket"
)

const DefaultTimeout = 5 * time.Second

var (
	NormalCloseErr   = errors.New("websocket closed normally")
	AbnormalCloseErr = errors.New("websocket closed abnormally")
	ClosedErr        = errors.New("websocket already closed")
	BadFrameErr      = errors.New("malformed frame")

	NormalCloseMsg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
)

func IsNormal(err error) bool {
	return err == nil || errors.Is(err, NormalCloseErr)
}

// Classify 将底层错误归为正常关闭/异常关闭/其他
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return NormalCloseErr
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return AbnormalCloseErr
	default:
		return err
	}
}
