package ws

import (
	"fmt"
	"net/url"

	"github.com/jinga80/medical-law/internal/models"
)

// Endpoint 标识一条逻辑通道：通道类型加可选的房间 id。
type Endpoint struct {
	Kind   models.ChannelKind
	RoomID string
}

func Notifications() Endpoint { return Endpoint{Kind: models.ChannelNotifications} }

func Workflow() Endpoint { return Endpoint{Kind: models.ChannelWorkflow} }

func Chat(roomID string) Endpoint { return Endpoint{Kind: models.ChannelChat, RoomID: roomID} }

// Path 返回服务端约定的路径，不可协商。
func (e Endpoint) Path() string {
	switch e.Kind {
	case models.ChannelNotifications:
		return "/ws/notifications/"
	case models.ChannelWorkflow:
		return "/ws/workflow/"
	default:
		return "/ws/chat/" + e.RoomID + "/"
	}
}

func (e Endpoint) String() string {
	if e.Kind == models.ChannelChat {
		return string(e.Kind) + ":" + e.RoomID
	}
	return string(e.Kind)
}

// URL 根据页面 origin 拼出通道地址，https 升级为 wss，http 升级为 ws。
func URL(origin string, e Endpoint) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}
	if e.Kind == models.ChannelChat && e.RoomID == "" {
		return "", fmt.Errorf("chat endpoint needs a room id")
	}
	u.Path = e.Path()
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
