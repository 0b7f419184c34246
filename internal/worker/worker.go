// Package worker serves freshness predictions as request/response messages
// over MQTT.
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
)

// Request carries a base64-encoded image file. Heatmap defaults to true.
type Request struct {
	RequestID string `json:"requestId"`
	Payload   string `json:"payload"`
	Heatmap   *bool  `json:"heatmap,omitempty"`
}

type Response struct {
	RequestID string  `json:"requestId"`
	Score     float64 `json:"score"`
	Class     string  `json:"class,omitempty"`
	Heatmap   string  `json:"heatmap,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Predictor is the slice of the pipeline the worker needs.
type Predictor interface {
	PredictEncoded(ctx context.Context, r io.Reader, withHeatmap bool) (*pipeline.Result, error)
}

// DefaultMaxInFlight is used when Options.MaxInFlight is not positive.
const DefaultMaxInFlight = 4

type Options struct {
	Broker        string
	RequestTopic  string
	ResponseTopic string
	// Timeout bounds a single request; zero means no limit.
	Timeout time.Duration
	// MaxInFlight caps concurrently processed requests. Further messages
	// wait in the MQTT client until a slot frees up.
	MaxInFlight int
}

type Worker struct {
	opts      Options
	predictor Predictor
	logger    *zap.Logger
	client    mqtt.Client
	slots     chan struct{}
}

func New(opts Options, predictor Predictor, logger *zap.Logger) *Worker {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	return &Worker{
		opts:      opts,
		predictor: predictor,
		logger:    logger.Named("worker"),
		slots:     make(chan struct{}, opts.MaxInFlight),
	}
}

// Start connects to the broker and subscribes to the request topic. The
// subscription is re-established on every reconnect.
func (w *Worker) Start() error {
	clientID := "freshness-" + uuid.New().String()
	w.logger.Info("connecting to MQTT", zap.String("broker", w.opts.Broker), zap.String("client_id", clientID))

	opts := mqtt.NewClientOptions().AddBroker(w.opts.Broker).SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		token := c.Subscribe(w.opts.RequestTopic, 0, func(c mqtt.Client, m mqtt.Message) {
			w.dispatch(m.Payload(), func(body []byte) { w.publish(c, body) })
		})
		if token.Wait() && token.Error() != nil {
			w.logger.Error("subscribe failed", zap.Error(token.Error()), zap.String("topic", w.opts.RequestTopic))
			return
		}
		w.logger.Info("subscribed", zap.String("topic", w.opts.RequestTopic))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		w.logger.Warn("MQTT connection lost", zap.Error(err))
	}

	w.client = mqtt.NewClient(opts)
	if token := w.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to %s: %w", w.opts.Broker, token.Error())
	}
	return nil
}

func (w *Worker) Stop() {
	if w.client != nil && w.client.IsConnected() {
		w.client.Disconnect(250)
	}
}

// dispatch blocks until a slot is free, then handles payload in the
// background and hands the response to publish.
func (w *Worker) dispatch(payload []byte, publish func([]byte)) {
	w.slots <- struct{}{}
	go func() {
		defer func() { <-w.slots }()
		publish(w.Handle(context.Background(), payload))
	}()
}

// publish uses QoS 0 so completion never depends on the inbound router,
// which dispatch may be holding while it waits for a slot.
func (w *Worker) publish(c mqtt.Client, body []byte) {
	if token := c.Publish(w.opts.ResponseTopic, 0, false, body); token.Wait() && token.Error() != nil {
		w.logger.Error("publish failed", zap.Error(token.Error()), zap.String("topic", w.opts.ResponseTopic))
	}
}

// Handle decodes one request message and returns the encoded response. It
// never fails: errors are reported inside the response.
func (w *Worker) Handle(ctx context.Context, payload []byte) []byte {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		w.logger.Warn("error parsing request", zap.Error(err))
		return w.encode(Response{Error: "invalid request: " + err.Error()})
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	opLogger := logging.WithOperation(w.logger, "worker.predict", req.RequestID)

	imageBytes, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		opLogger.Warn("payload is not base64", zap.Error(err))
		return w.encode(Response{RequestID: req.RequestID, Error: "payload is not valid base64"})
	}

	ctx = logging.ContextWithRequestID(ctx, req.RequestID)
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}

	withHeatmap := req.Heatmap == nil || *req.Heatmap
	result, err := w.predictor.PredictEncoded(ctx, bytes.NewReader(imageBytes), withHeatmap)
	if err != nil {
		opLogger.Error("prediction failed", logging.ErrorFields(err)...)
		msg := err.Error()
		if errors.Is(err, model.ErrUnavailable) {
			msg = "model unavailable"
		}
		return w.encode(Response{RequestID: req.RequestID, Error: msg})
	}

	resp := Response{
		RequestID: req.RequestID,
		Score:     result.Score,
		Class:     result.Category.String(),
	}
	if result.Heatmap != nil {
		resp.Heatmap = result.Heatmap.DataURI
	}
	return w.encode(resp)
}

func (w *Worker) encode(resp Response) []byte {
	body, err := json.Marshal(resp)
	if err != nil {
		// Response holds only strings and a finite float.
		w.logger.Error("failed to encode response", zap.Error(err))
		return []byte(`{"error":"internal error"}`)
	}
	return body
}
