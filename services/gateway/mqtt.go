package gateway

import (
	"context"
	"encoding/json"
	"net"

	"github.com/eclipse/paho.golang/paho"

	"sensilo-go/errcode"
)

// MQTTSink publishes each measurement as JSON to
// <prefix>/<device>/measurement.
type MQTTSink struct {
	cfg    MQTTConfig
	client *paho.Client
}

// DialMQTTSink connects to the broker and completes the MQTT handshake.
func DialMQTTSink(ctx context.Context, cfg MQTTConfig) (*MQTTSink, error) {
	const op = "mqtt.Dial"
	conn, err := net.Dial("tcp", cfg.Broker)
	if err != nil {
		return nil, &errcode.E{C: errcode.Timeout, Op: op, Msg: "dial " + cfg.Broker, Err: err}
	}
	client := paho.NewClient(paho.ClientConfig{Conn: conn})
	ca, err := client.Connect(ctx, &paho.Connect{
		ClientID:   cfg.ClientID,
		KeepAlive:  30,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, &errcode.E{C: errcode.Timeout, Op: op, Msg: "connect", Err: err}
	}
	if ca.ReasonCode != 0 {
		conn.Close()
		msg := "broker refused connection"
		if ca.Properties != nil && ca.Properties.ReasonString != "" {
			msg += ": " + ca.Properties.ReasonString
		}
		return nil, &errcode.E{C: errcode.SinkRejected, Op: op, Msg: msg}
	}
	return &MQTTSink{cfg: cfg, client: client}, nil
}

func (s *MQTTSink) Submit(ctx context.Context, m *Measurement) error {
	const op = "mqtt.Submit"
	payload, err := json.Marshal(m)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Err: err}
	}
	_, err = s.client.Publish(ctx, &paho.Publish{
		Topic:   s.cfg.TopicPrefix + "/" + m.Name + "/measurement",
		QoS:     s.cfg.QoS,
		Payload: payload,
	})
	if err != nil {
		return &errcode.E{C: errcode.SinkRejected, Op: op, Msg: "publish", Err: err}
	}
	return nil
}

func (s *MQTTSink) Close() error {
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
