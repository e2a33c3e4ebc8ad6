package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/smart_office/office"
	"github.com/elijahnyp/smart_office/state"
	. "github.com/elijahnyp/smart_office/util"
)

var actuatorDeviceClass = map[string]string{
	office.Light.Label():          "light",
	office.AirConditioner.Label(): "running",
}

func deviceKey(device string) string {
	return strings.ToLower(device)
}

func actuatorTopic(room int, device string) string {
	return Topic("room", strconv.Itoa(room), deviceKey(device))
}

func occupantsTopic() string {
	return Topic("room", "+", "occupants")
}

// mqttSink mirrors actuator transitions onto retained MQTT topics. It reads
// the global Client on every event so it follows reconnects.
type mqttSink struct{}

func (mqttSink) Publish(e state.Event) {
	if e.Kind != state.ActuatorChanged {
		return
	}
	client := Client
	if client == nil || !client.IsConnected() {
		return
	}
	payload := "OFF"
	if e.On {
		payload = "ON"
	}
	topic := actuatorTopic(e.Room, e.Device)
	token := client.Publish(topic, 0, true, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error publishing %s to %s: %v", payload, topic, token.Error())
		}
	}()
}

// roomFromTopic extracts the room id from <prefix>/room/<id>/occupants.
func roomFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[len(parts)-3] != "room" {
		return 0, fmt.Errorf("unexpected topic %s", topic)
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, fmt.Errorf("bad room id in topic %s: %w", topic, err)
	}
	return id, nil
}

// occupantsReceiver applies head counts from people counters to the office.
func occupantsReceiver(o *office.Office) MQTT.MessageHandler {
	return func(client MQTT.Client, message MQTT.Message) {
		Logger.Debug().Msgf("Message Received on topic %s", message.Topic())
		id, err := roomFromTopic(message.Topic())
		if err != nil {
			Logger.Warn().Msgf("%v", err)
			return
		}
		count, err := strconv.Atoi(strings.TrimSpace(string(message.Payload())))
		if err != nil {
			Logger.Warn().Msgf("room %d occupant count not an integer: %q", id, message.Payload())
			return
		}
		res := o.AddOccupant(id, count)
		if res.Succeeded() {
			Logger.Info().Msg(res.String())
		} else {
			Logger.Warn().Int("room", id).Str("outcome", res.Outcome.String()).Msg(res.String())
		}
	}
}

func haEntities(o *office.Office) []HAEntity {
	var entities []HAEntity
	for _, id := range o.Rooms() {
		for _, kind := range []office.ActuatorKind{office.Light, office.AirConditioner} {
			label := kind.Label()
			entities = append(entities, HAEntity{
				Room:        id,
				Key:         deviceKey(label),
				Name:        label,
				DeviceClass: actuatorDeviceClass[label],
				StateTopic:  actuatorTopic(id, label),
			})
		}
	}
	return entities
}

func advertise(o *office.Office, client MQTT.Client) {
	if err := AdvertiseHA(haEntities(o), client); err != nil {
		Logger.Error().Msgf("Error advertising to Home Assistant: %v", err)
	}
}

// OnlinePinger publishes an online heartbeat until ctx is canceled.
func OnlinePinger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client := Client
			if client == nil || !client.IsConnected() {
				continue
			}
			if token := client.Publish(OnlineTopic(), 0, false, "online"); token.Wait() && token.Error() != nil {
				Logger.Error().Msgf("Error publishing online message: %v", token.Error())
			}
		}
	}
}

// HAAdvertiser re-sends discovery messages so Home Assistant picks up
// rooms added by a reconfiguration.
func HAAdvertiser(ctx context.Context, o *office.Office, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if Client != nil && Client.IsConnected() {
				Logger.Debug().Msg("Advertising Home Assistant discovery messages")
				advertise(o, Client)
			}
		}
	}
}

func setupMQTT(ctx context.Context, o *office.Office) {
	RegisterMQTTSubscription(occupantsTopic(), occupantsReceiver(o))
	RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
		advertise(o, client)
	})
	if err := MqttInit(); err != nil {
		Logger.Error().Msgf("MQTT unavailable: %v", err)
	}
	go OnlinePinger(ctx, 10*time.Second)
	go HAAdvertiser(ctx, o, 5*time.Minute)
}
