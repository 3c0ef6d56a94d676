package bootstrap

import (
	"SocialPulse/internal/adapter"
	"SocialPulse/internal/config"
	"SocialPulse/internal/helper"
	"SocialPulse/internal/model"
	"SocialPulse/internal/service"
	"SocialPulse/internal/websocket"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Client bundles the connection manager with the stream adapters: one
// instance per authenticated process.
type Client struct {
	Config        *config.AppConfig
	Viewer        model.UserDTO
	Manager       *websocket.Manager
	Chat          *service.ChatService
	Follow        *service.FollowService
	Notifications *service.NotificationService
	Status        *service.UserStatusService

	api       *adapter.APIAdapter
	validator *validator.Validate
}

func Init(cfg *config.AppConfig) (*Client, error) {
	viewerID, err := helper.ExtractUserID(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("derive viewer from token: %w", err)
	}
	viewer := model.UserDTO{ID: viewerID}

	manager := websocket.NewManager(websocket.Options{
		ServerURL:            cfg.ServerURL,
		Token:                cfg.Token,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		HandshakeTimeout:     cfg.HandshakeTimeout,
		BaseDelay:            cfg.ReconnectBaseDelay,
		BackoffFactor:        cfg.ReconnectFactor,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})

	api := adapter.NewAPIAdapter(cfg, config.NewHTTPClient(cfg))
	validate := config.NewValidator()

	return &Client{
		Config:        cfg,
		Viewer:        viewer,
		Manager:       manager,
		Chat:          service.NewChatService(cfg, api, manager, validate, viewer),
		Follow:        service.NewFollowService(api, manager, validate),
		Notifications: service.NewNotificationService(api, manager),
		Status:        service.NewUserStatusService(manager),
		api:           api,
		validator:     validate,
	}, nil
}

// Connect starts every feed adapter and dials the socket. Adapters are
// started first: a failed dial still leaves them waiting on the
// connection-state channel while the manager backs off and retries.
func (c *Client) Connect() error {
	c.Chat.Start()
	c.Follow.Start()
	c.Notifications.Start()
	c.Status.Start()
	return c.Manager.Connect()
}

// GroupChat builds the adapter for one group conversation. The caller owns
// its lifecycle and must Stop it when leaving the group.
func (c *Client) GroupChat(groupID uuid.UUID) *service.GroupChatService {
	return service.NewGroupChatService(c.Config, c.api, c.Manager, c.validator, c.Viewer, groupID)
}

// Close is the logout path: adapters stop, the socket closes with the
// normal-closure code and all subscriptions are wiped.
func (c *Client) Close() {
	c.Chat.Stop()
	c.Follow.Stop()
	c.Notifications.Stop()
	c.Status.Stop()
	c.Manager.Close()
}
