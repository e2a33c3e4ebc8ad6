package util

import (
	"encoding/json"
	"fmt"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAvailability struct {
	Topic               string `json:"topic"`                 // : "office/online"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "Meeting room 1"
	Identifiers []string `json:"ids"`  // : ["smart_office_room_1"]
}

type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	Availability []HAAvailability `json:"availability"`
	Device       HADeviceSpec     `json:"device"`
	UniqueID     string           `json:"uniq_id"`     // "smart_office-room1-light"
	Name         string           `json:"name"`        // : "Light"
	StateTopic   string           `json:"state_topic"` // : "office/room/1/light"
	PayloadOn    string           `json:"payload_on"`  // : "ON"
	PayloadOff   string           `json:"payload_off"`
	DeviceClass  string           `json:"device_class"` // : "light"
	Platform     string           `json:"platform"`     // "binary_sensor"
	Qos          int              `json:"qos"`
}

// HAEntity is one actuator exposed to Home Assistant.
type HAEntity struct {
	Key         string // "light", "ac"
	Name        string // "Light", "AC"
	DeviceClass string
	StateTopic  string
	Room        int
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

func ConstructHAAdvertisement(entity HAEntity) HAAdvertisement {
	roomID := fmt.Sprintf("%s_room_%d", Config.GetString("id_base"), entity.Room)
	return HAAdvertisement{
		Name:       entity.Name,
		StateTopic: entity.StateTopic,
		PayloadOn:  "ON",
		PayloadOff: "OFF",
		Availability: []HAAvailability{
			{
				Topic:               OnlineTopic(),
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
		},
		Qos:         0,
		UniqueID:    fmt.Sprintf("%s-%s", roomID, entity.Key),
		DeviceClass: entity.DeviceClass,
		Platform:    "binary_sensor",
		Device: HADeviceSpec{
			Name:        fmt.Sprintf("Meeting room %d", entity.Room),
			Identifiers: []string{roomID},
		},
	}
}

func HAConfigTopic(entity HAEntity) string {
	return fmt.Sprintf("homeassistant/binary_sensor/%s_room_%d/%s/config", Config.GetString("id_base"), entity.Room, entity.Key)
}

// AdvertiseHA publishes a discovery message for every entity, stopping at
// the first publish failure.
func AdvertiseHA(entities []HAEntity, client MQTT.Client) error {
	for _, entity := range entities {
		ha := ConstructHAAdvertisement(entity)
		if token := client.Publish(HAConfigTopic(entity), 0, true, ha.ToJson()); token.Wait() && token.Error() != nil {
			return fmt.Errorf("advertising %s: %w", HAConfigTopic(entity), token.Error())
		}
	}
	return nil
}
