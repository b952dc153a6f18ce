// Copyright 2025 James Ross
package wire

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemas = map[string]*gojsonschema.Schema{}

func mustLoadSchema(name string) *gojsonschema.Schema {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("wire: missing embedded schema %s: %v", name, err))
	}
	loader := gojsonschema.NewBytesLoader(b)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(fmt.Sprintf("wire: invalid embedded schema %s: %v", name, err))
	}
	return schema
}

func init() {
	schemas["traffic_update"] = mustLoadSchema("traffic_update.json")
	schemas["congestion_alert"] = mustLoadSchema("congestion_alert.json")
	schemas["traffic_event"] = mustLoadSchema("traffic_event.json")
	schemas["light_adjustment"] = mustLoadSchema("light_adjustment.json")
}

// ErrInvalidPayload is the sentinel surfaced on schema-validation or decode
// failure (spec §7 InvalidPayload: malformed JSON or missing required
// fields — ack and drop).
type ErrInvalidPayload struct {
	Kind    string
	Reasons []string
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("wire: invalid %s payload: %s", e.Kind, strings.Join(e.Reasons, "; "))
}

func validate(kind string, payload []byte) error {
	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("wire: unknown message kind %q", kind)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return &ErrInvalidPayload{Kind: kind, Reasons: []string{err.Error()}}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return &ErrInvalidPayload{Kind: kind, Reasons: reasons}
	}
	return nil
}

// DecodeTrafficUpdate validates and unmarshals a traffic_data payload.
func DecodeTrafficUpdate(payload []byte) (TrafficUpdate, error) {
	var v TrafficUpdate
	if err := validate("traffic_update", payload); err != nil {
		return v, err
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, &ErrInvalidPayload{Kind: "traffic_update", Reasons: []string{err.Error()}}
	}
	return v, nil
}

// DecodeCongestionAlert validates and unmarshals a congestion_alerts
// payload.
func DecodeCongestionAlert(payload []byte) (CongestionAlert, error) {
	var v CongestionAlert
	if err := validate("congestion_alert", payload); err != nil {
		return v, err
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, &ErrInvalidPayload{Kind: "congestion_alert", Reasons: []string{err.Error()}}
	}
	return v, nil
}

// DecodeTrafficEvent validates and unmarshals a traffic_events payload.
func DecodeTrafficEvent(payload []byte) (TrafficEvent, error) {
	var v TrafficEvent
	if err := validate("traffic_event", payload); err != nil {
		return v, err
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, &ErrInvalidPayload{Kind: "traffic_event", Reasons: []string{err.Error()}}
	}
	return v, nil
}

// DecodeLightAdjustment validates and unmarshals a light_adjustments
// payload.
func DecodeLightAdjustment(payload []byte) (LightAdjustment, error) {
	var v LightAdjustment
	if err := validate("light_adjustment", payload); err != nil {
		return v, err
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, &ErrInvalidPayload{Kind: "light_adjustment", Reasons: []string{err.Error()}}
	}
	return v, nil
}
