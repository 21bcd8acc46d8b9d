package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"narrative-workers/internal/common/aws"
	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/logger"

	"github.com/nats-io/nats.go"
)

// SNSDispatcher publishes render requests to an SNS topic.
type SNSDispatcher struct {
	client   *aws.SNSClient
	topicARN string
	logger   logger.Logger
}

func NewSNSDispatcher(client *aws.SNSClient, topicARN string, log logger.Logger) *SNSDispatcher {
	return &SNSDispatcher{client: client, topicARN: topicARN, logger: logger.ForComponent(log, "render.sns")}
}

func (d *SNSDispatcher) Dispatch(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode render request: %w", err)
	}
	msgID, err := d.client.PublishMessage(ctx, d.topicARN, string(body), map[string]string{
		"template_id": req.TemplateID,
		"image_id":    req.ImageID,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", d.topicARN, err)
	}
	d.logger.Debug("render request published", map[string]interface{}{
		"messageId": msgID,
		"imageId":   req.ImageID,
	})
	return nil
}

// Publisher is the part of *nats.Conn the NATS dispatcher uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSDispatcher publishes render requests on <subject>.<template_id>.
type NATSDispatcher struct {
	conn    Publisher
	subject string
}

func NewNATSDispatcher(conn Publisher, subject string) *NATSDispatcher {
	return &NATSDispatcher{conn: conn, subject: subject}
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode render request: %w", err)
	}
	subject := d.subject + "." + req.TemplateID
	if err := d.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// ConnectNATS opens a reconnecting NATS connection for the render dispatcher.
func ConnectNATS(cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	l := logger.ForComponent(log, "render.nats")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("narrative-workers"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info("nats reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// NewDispatcher builds the dispatcher named in cfg. The returned closer
// releases any connection it opened.
func NewDispatcher(ctx context.Context, cfg config.RenderConfig, log logger.Logger) (Dispatcher, func(), error) {
	switch cfg.Dispatcher {
	case "", config.DispatcherNone:
		return NoopDispatcher{}, func() {}, nil
	case config.DispatcherSNS:
		client, err := aws.NewSNSClient(ctx, cfg.SNS.Region)
		if err != nil {
			return nil, nil, err
		}
		return NewSNSDispatcher(client, cfg.SNS.TopicARN, log), func() {}, nil
	case config.DispatcherNATS:
		nc, err := ConnectNATS(cfg.NATS, log)
		if err != nil {
			return nil, nil, err
		}
		return NewNATSDispatcher(nc, cfg.NATS.Subject), func() { nc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown render dispatcher %q", cfg.Dispatcher)
	}
}
