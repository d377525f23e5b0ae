package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventTypeKey is the schema extension naming the CloudEvent type a payload schema describes
const EventTypeKey = "x-event-type"

// EventValidator validates CloudEvent payloads against the schemas of an AsyncAPI document.
type EventValidator struct {
	spec       AsyncAPISpec
	schemas    map[string]*jsonschema.Schema
	rawSchemas map[string]map[string]interface{}
	compiler   *jsonschema.Compiler
}

// CloudEvent is the structured-mode envelope as it travels on Kafka.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            string      `json:"time,omitempty"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// AsyncAPISpec is the part of an AsyncAPI 3 document the validator reads.
type AsyncAPISpec struct {
	AsyncAPI   string                     `yaml:"asyncapi"`
	Info       AsyncAPIInfo               `yaml:"info"`
	Channels   map[string]AsyncAPIChannel `yaml:"channels"`
	Components AsyncAPIComponents         `yaml:"components"`
}

// AsyncAPIInfo contains AsyncAPI info section.
type AsyncAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// AsyncAPIChannel represents a channel in AsyncAPI.
type AsyncAPIChannel struct {
	Address  string                 `yaml:"address"`
	Messages map[string]interface{} `yaml:"messages"`
}

// AsyncAPIComponents contains reusable components.
type AsyncAPIComponents struct {
	Schemas  map[string]interface{} `yaml:"schemas"`
	Messages map[string]interface{} `yaml:"messages"`
}

// NewEventValidatorFromBytes compiles every component schema tagged with x-event-type.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec AsyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	v := &EventValidator{
		spec:       spec,
		schemas:    make(map[string]*jsonschema.Schema),
		rawSchemas: make(map[string]map[string]interface{}),
		compiler:   jsonschema.NewCompiler(),
	}

	for name, schema := range spec.Components.Schemas {
		schemaMap, ok := schema.(map[string]interface{})
		if !ok {
			continue
		}
		eventType, _ := schemaMap[EventTypeKey].(string)
		if eventType == "" {
			continue
		}

		schemaJSON, err := json.Marshal(schemaMap)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema %s: %w", name, err)
		}
		if err := v.register(eventType, "asyncapi://components/schemas/"+name, schemaJSON); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		v.rawSchemas[eventType] = schemaMap
	}

	return v, nil
}

func (v *EventValidator) register(eventType, uri string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}
	if err := v.compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := v.compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	v.schemas[eventType] = compiled
	return nil
}

// ValidateEvent validates the envelope and the data payload of event.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.SpecVersion != "1.0" {
		return fmt.Errorf("unsupported specversion %q", event.SpecVersion)
	}
	if event.ID == "" || event.Source == "" {
		return fmt.Errorf("event id and source are required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(dataJSON))
	if err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON validates a CloudEvent from JSON bytes.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// GetSupportedEventTypes returns the event types with a schema, sorted.
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// HasSchema checks if a schema exists for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// ChannelAddresses returns the address of every channel, sorted.
func (v *EventValidator) ChannelAddresses() []string {
	addresses := make([]string, 0, len(v.spec.Channels))
	for _, ch := range v.spec.Channels {
		addresses = append(addresses, ch.Address)
	}
	sort.Strings(addresses)
	return addresses
}
