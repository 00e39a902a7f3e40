package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-json-experiment/json"
	"github.com/rs/zerolog"

	"github.com/jgoulah/gridprice/internal/config"
	"github.com/jgoulah/gridprice/pkg/models"
)

// Summary is the published view of a repricing run
type Summary struct {
	ServiceID      string  `json:"esiid"`
	PlanID         string  `json:"plan_id"`
	Plan           string  `json:"plan"`
	TotalCost      float64 `json:"total_cost"`
	AvgMonthlyCost float64 `json:"avg_monthly_cost"`
	AvgPricePerKWh float64 `json:"avg_price_per_kwh"`
	Months         int     `json:"months"`
	PlansCompared  int     `json:"plans_compared"`
	GeneratedAt    string  `json:"generated_at"`
}

// NewSummary describes the cheapest estimate. Results must be sorted cheapest
// first; false is returned when there is nothing to publish.
func NewSummary(serviceID string, results []models.PlanCostEstimate, now time.Time) (Summary, bool) {
	if len(results) == 0 {
		return Summary{}, false
	}
	best := results[0]
	return Summary{
		ServiceID:      serviceID,
		PlanID:         best.Plan.PlanID,
		Plan:           best.Plan.DisplayName(),
		TotalCost:      best.TotalCost,
		AvgMonthlyCost: best.AvgMonthlyCost,
		AvgPricePerKWh: best.AvgPricePerKWh,
		Months:         len(best.MonthlyCosts),
		PlansCompared:  len(results),
		GeneratedAt:    now.UTC().Format(time.RFC3339),
	}, true
}

// Publisher sends repricing summaries to MQTT and/or Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	http        *http.Client
	log         zerolog.Logger
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig, log zerolog.Logger) (*Publisher, error) {
	// Validate HA config if enabled
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
		if haCfg.EntityID == "" {
			return nil, fmt.Errorf("Home Assistant entity_id is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("gridprice")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(false)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: mqttCfg.GetTopicPrefix(),
		haConfig:    haCfg,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         log.With().Str("component", "publisher").Logger(),
	}, nil
}

// Enabled reports whether any destination is configured
func (p *Publisher) Enabled() bool {
	return p.client != nil || p.haConfig.Enabled
}

// Topic returns the retained MQTT topic for a service point
func (p *Publisher) Topic(serviceID string) string {
	return fmt.Sprintf("%s/%s/best_plan", strings.TrimSuffix(p.topicPrefix, "/"), serviceID)
}

// Publish sends the summary to every configured destination
func (p *Publisher) Publish(ctx context.Context, summary Summary) error {
	if !p.Enabled() {
		return fmt.Errorf("no publish destination is enabled in config")
	}

	if p.client != nil {
		if err := p.publishMQTT(summary); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishMQTT(summary Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := p.Topic(summary.ServiceID)
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.log.Debug().Str("topic", topic).Msg("published to MQTT")
	return nil
}

// haState matches the Home Assistant POST /api/states/<entity_id> body
type haState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (p *Publisher) publishHA(ctx context.Context, summary Summary) error {
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimSuffix(p.haConfig.URL, "/"), p.haConfig.EntityID)

	state := haState{
		State: fmt.Sprintf("%.2f", summary.TotalCost),
		Attributes: map[string]any{
			"esiid":               summary.ServiceID,
			"plan_id":             summary.PlanID,
			"plan":                summary.Plan,
			"avg_monthly_cost":    summary.AvgMonthlyCost,
			"avg_price_per_kwh":   summary.AvgPricePerKWh,
			"months":              summary.Months,
			"plans_compared":      summary.PlansCompared,
			"generated_at":        summary.GeneratedAt,
			"unit_of_measurement": "USD",
			"friendly_name":       "Cheapest electricity plan",
		},
	}

	body, err := json.Marshal(state, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	// HA answers 200 for updates and 201 for newly created entities
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	p.log.Debug().Str("entity_id", p.haConfig.EntityID).Msg("published to Home Assistant")
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
