package mqtt

import (
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/boilerd/internal/boiler"
)

// RealClient is the plant link backed by an actual MQTT broker. It buffers
// outbound publishes made while disconnected and replays them on reconnect.
type RealClient struct {
	client paho.Client
	buf    *ringBuffer
}

// NewRealClient connects to broker and returns a plant link ready to
// publish and subscribe. bufferCapacity bounds how many outbound messages
// are retained while disconnected before the oldest are dropped.
func NewRealClient(broker, clientID string, bufferCapacity int) (*RealClient, error) {
	rc := &RealClient{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { rc.drainBuffer() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}

	rc.client = client
	return rc, nil
}

// Subscribe registers handler for every tick-topic message of boilerID.
func (rc *RealClient) Subscribe(boilerID string, handler func(*boiler.Mailbox)) error {
	token := rc.client.Subscribe(TickTopic(boilerID), 1, func(_ paho.Client, msg paho.Message) {
		mb, err := DecodeTick(msg.Payload())
		if err != nil {
			log.Printf("mqtt: malformed tick on %s: %v", msg.Topic(), err)
			return
		}
		handler(mb)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: subscribe timeout")
	}
	return token.Error()
}

func (rc *RealClient) PublishCommands(boilerID string, mb *boiler.Mailbox) error {
	payload, err := EncodeMailbox(mb)
	if err != nil {
		return err
	}
	return rc.publish(CommandsTopic(boilerID), 0, false, payload)
}

func (rc *RealClient) PublishMode(boilerID string, mode boiler.Mode) error {
	payload, err := EncodeMode(mode)
	if err != nil {
		return err
	}
	return rc.publish(ModeTopic(boilerID), 1, true, payload)
}

func (rc *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !rc.client.IsConnected() {
		rc.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}
	token := rc.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		rc.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return fmt.Errorf("mqtt: publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		rc.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (rc *RealClient) drainBuffer() {
	for _, m := range rc.buf.drainAll() {
		token := rc.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay failed on %s: %v", m.topic, err)
		}
	}
}

func (rc *RealClient) IsConnected() bool { return rc.client.IsConnected() }

func (rc *RealClient) Close() error {
	rc.client.Disconnect(1000)
	return nil
}
