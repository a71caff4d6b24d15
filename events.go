package cyaml

import "github.com/tlsa/go-cyaml/internal/yamlh"

// Event constructors shared by save's emit side. Every one uses implicit
// styling (no explicit tag, no block markers) since spec.md's wire format
// is plain YAML with no tag annotations (§6.4, §9 "Forward compatibility").

func evStreamStart() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.STREAM_START_EVENT, Encoding: yamlh.UTF8_ENCODING}
}

func evStreamEnd() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.STREAM_END_EVENT}
}

func evDocStart() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.DOCUMENT_START_EVENT, Implicit: true}
}

func evDocEnd() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.DOCUMENT_END_EVENT, Implicit: true}
}

func evScalar(value string) *yamlh.Event {
	return &yamlh.Event{
		Type:            yamlh.SCALAR_EVENT,
		Value:           []byte(value),
		Implicit:        true,
		Quoted_implicit: true,
		Style:           yamlh.YamlStyle(yamlh.PLAIN_SCALAR_STYLE),
	}
}

func evMappingStart() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.MAPPING_START_EVENT, Implicit: true}
}

func evMappingEnd() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.MAPPING_END_EVENT}
}

func evSequenceStart() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.SEQUENCE_START_EVENT, Implicit: true}
}

func evSequenceEnd() *yamlh.Event {
	return &yamlh.Event{Type: yamlh.SEQUENCE_END_EVENT}
}
