// Package ingest subscribes to the occupancy feed published by the
// external lot scraper and appends samples to the occupancy store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/parkcast/parkcast/core/logger"
	"github.com/parkcast/parkcast/core/metrics"
	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/store"
)

// Config holds the MQTT connection settings for the occupancy feed.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "parkcast/occupancy/+"
	}
	if c.ClientID == "" {
		c.ClientID = "parkcast-ingest-" + time.Now().Format("20060102150405")
	}
}

// samplePayload is the wire shape published by the scraper.
type samplePayload struct {
	LotID        string   `json:"lot_id"`
	ObservedAt   string   `json:"observed_at"`
	OccupancyPct *float64 `json:"occupancy_pct"`
}

// Collector consumes the feed and writes samples.
type Collector struct {
	cfg    Config
	occ    store.OccupancyStore
	log    logger.Logger
	sink   metrics.Sink
	client mqtt.Client
}

// NewCollector builds a collector. sink may be nil.
func NewCollector(cfg Config, occ store.OccupancyStore, log logger.Logger, sink metrics.Sink) *Collector {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Collector{cfg: cfg, occ: occ, log: log, sink: sink}
}

// Start connects and subscribes. It returns once connected; message
// handling runs on the MQTT client's callbacks until Stop.
func (c *Collector) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		c.handle(ctx, msg.Payload())
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(c.cfg.Topic, 0, nil)
		token.Wait()
		if token.Error() != nil {
			c.log.Errorf("subscribe %s: %v", c.cfg.Topic, token.Error())
			return
		}
		c.log.Infof("subscribed to %s", c.cfg.Topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.log.Warnf("connection lost: %v", err)
	}

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Stop disconnects from the broker.
func (c *Collector) Stop() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

func (c *Collector) handle(ctx context.Context, payload []byte) {
	var p samplePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.log.Warnf("bad payload: %v", err)
		_ = c.sink.RecordIngest("", false)
		return
	}
	if p.LotID == "" {
		c.log.Warnf("bad payload: missing lot_id")
		_ = c.sink.RecordIngest("", false)
		return
	}
	observedAt, err := time.Parse(time.RFC3339, p.ObservedAt)
	if err != nil {
		c.log.Warnf("lot %s: bad observed_at %q: %v", p.LotID, p.ObservedAt, err)
		_ = c.sink.RecordIngest(p.LotID, false)
		return
	}

	pct := p.OccupancyPct
	if pct != nil {
		v := model.ClampPct(*pct)
		pct = &v
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = c.occ.InsertSamples(writeCtx, []model.OccupancySample{{
		LotID:      p.LotID,
		ObservedAt: observedAt.UTC(),
		Pct:        pct,
	}})
	if err != nil {
		c.log.Errorf("lot %s: insert sample: %v", p.LotID, err)
		_ = c.sink.RecordIngest(p.LotID, false)
		return
	}
	_ = c.sink.RecordIngest(p.LotID, true)
}
