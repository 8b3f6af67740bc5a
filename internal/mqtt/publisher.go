// Package mqtt publishes prayer-time events and period status to an MQTT
// broker, for home-automation setups that flip lights or play the adhan on a
// speaker. Disabled publishers are no-ops, so callers never branch on the
// config flag.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/mzahid/athan/internal/notify"
	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

// PublishTrigger announces a fired notification trigger on
// <prefix>/trigger/<prayer>. The payload carries the kind so automations can
// distinguish a reminder from the adhan itself.
func (p *Publisher) PublishTrigger(tr notify.Trigger) error {
	if !p.enabled {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"prayer": tr.Prayer.String(),
		"kind":   string(tr.Kind),
		"at":     tr.At.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	topic := fmt.Sprintf("%s/trigger/%s", p.topicPrefix, tr.Prayer.String())
	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// statusPayload is the retained JSON snapshot published on <prefix>/status.
type statusPayload struct {
	State     string  `json:"state"`
	Current   string  `json:"current,omitempty"`
	Next      string  `json:"next,omitempty"`
	Countdown string  `json:"countdown"`
	Progress  float64 `json:"progress"`
	Urgent    bool    `json:"urgent"`
}

// PublishStatus retains the current period snapshot so late subscribers see
// the state immediately.
func (p *Publisher) PublishStatus(per period.Period) error {
	if !p.enabled {
		return nil
	}

	status := statusPayload{
		State:     per.State.String(),
		Countdown: per.Countdown,
		Progress:  per.Progress,
		Urgent:    per.Urgent,
	}
	if per.State == period.InWindow {
		status.Current = per.Current.String()
	}
	if per.State == period.BeforeFajr || per.State == period.BetweenWindows {
		status.Next = per.Next.String()
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	topic := fmt.Sprintf("%s/status", p.topicPrefix)
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish status: %w", token.Error())
	}
	return nil
}

// PublishTimes retains the day's boundaries on <prefix>/times/<prayer>, one
// topic per defined boundary.
func (p *Publisher) PublishTimes(day *times.Day) error {
	if !p.enabled || day == nil {
		return nil
	}

	for _, e := range day.Ordered() {
		topic := fmt.Sprintf("%s/times/%s", p.topicPrefix, e.Prayer.String())
		token := p.client.Publish(topic, 0, true, e.Time.Format(time.RFC3339))
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("failed to publish prayer time")
		}
	}
	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
