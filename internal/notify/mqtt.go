package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresmejia3/emotiscan/internal/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// NewClientFunc is swapped out in tests.
var NewClientFunc = mqtt.NewClient

// ImageEvent is the JSON payload published once per processed image.
type ImageEvent struct {
	ImageName     string              `json:"image_name"`
	FacesFiltered int                 `json:"faces_filtered"`
	Faces         []*types.FaceRecord `json:"faces"`
}

// Publisher emits result records to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher connects to broker (e.g. "tcp://localhost:1883") and returns a
// Publisher that writes under baseTopic.
func NewPublisher(broker, baseTopic, clientID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	})

	client := NewClientFunc(opts)
	log.Infof("Connecting to MQTT broker: %s", broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, token.Error())
	}
	return newPublisher(client, baseTopic), nil
}

func newPublisher(client mqtt.Client, baseTopic string) *Publisher {
	return &Publisher{client: client, topic: strings.TrimSuffix(baseTopic, "/")}
}

// Append groups records by image and publishes one event per image.
func (p *Publisher) Append(ctx context.Context, records []types.Record) error {
	for _, ev := range Events(records) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal payload to JSON: %w", err)
		}
		topic := p.TopicFor(ev.ImageName)
		token := p.client.Publish(topic, 1, false, payload)
		select {
		case <-token.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
		}
		log.Debugf("Published message to topic: %s", topic)
	}
	return nil
}

// TopicFor returns the topic for an image. MQTT wildcards are not allowed in
// publish topics, so they are replaced.
func (p *Publisher) TopicFor(imageName string) string {
	name := strings.NewReplacer("+", "_", "#", "_", "/", "_").Replace(imageName)
	return p.topic + "/" + name
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}

// Events folds records into one event per image, keeping first-seen order.
func Events(records []types.Record) []ImageEvent {
	var out []ImageEvent
	idx := map[string]int{}
	for _, r := range records {
		i, ok := idx[r.ImageName]
		if !ok {
			i = len(out)
			idx[r.ImageName] = i
			out = append(out, ImageEvent{ImageName: r.ImageName, FacesFiltered: r.FacesFiltered, Faces: []*types.FaceRecord{}})
		}
		if r.Face != nil {
			out[i].Faces = append(out[i].Faces, r.Face)
		}
	}
	return out
}
