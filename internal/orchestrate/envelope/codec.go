// Package envelope implements the Envelope Codec: recognizing the three
// inbound event shapes (gateway-proxy, orchestrated, bare) and producing
// the orchestrated wire form for outbound hand-offs.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"orchestrate/runtime/internal/orchestrate/sequence"
)

const orchestratedMarker = "orchestrated-message-body"

// Envelope is the wire form carried between invocations (§3
// OrchestratedEnvelope): `{type, body, sequence, headers}` where body,
// sequence and headers are independently compressed.
type Envelope struct {
	Type     string `json:"type"`
	Body     string `json:"body"`
	Sequence string `json:"sequence"`
	Headers  string `json:"headers"`
}

// GatewayRequest is the inbound API-Gateway proxy-integration shape (§6).
type GatewayRequest struct {
	Headers               map[string]string `json:"headers"`
	Body                  string            `json:"body"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	RequestContext        struct {
		Authorizer struct {
			CustomClaims json.RawMessage `json:"customClaims"`
		} `json:"authorizer"`
	} `json:"requestContext"`
}

// GatewayResponse is the outbound API-Gateway proxy-integration shape (§6).
type GatewayResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Unboxed is unbox's return value (§4.1): `{request, sequence, headers, gateway}`.
type Unboxed struct {
	Request  map[string]any
	Sequence *sequence.Sequence
	Headers  map[string]string
	Gateway  *GatewayRequest
}

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// compress applies the byte-efficient LZ-class scheme (§4.1) to the
// UTF-8 JSON encoding of v, base64-encoding the compressed bytes so they
// survive being carried in a JSON string field.
func compress(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(zstdEncoder.EncodeAll(raw, nil)), nil
}

// decompressBytes is tolerant of either compressed or plain JSON (§4.1,
// §6): it tries base64+zstd decoding first and falls back to the raw bytes.
func decompressBytes(s string) []byte {
	if s == "" {
		return nil
	}
	if packed, err := base64.StdEncoding.DecodeString(s); err == nil {
		if raw, err := zstdDecoder.DecodeAll(packed, nil); err == nil {
			return raw
		}
	}
	return []byte(s)
}

// decompress decodes s (see decompressBytes) and unmarshals it into out.
func decompress(s string, out any) error {
	raw := decompressBytes(s)
	if raw == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Box produces the orchestrated envelope from a body, a sequence and a
// header mapping (§4.1 box, symmetric with unbox).
func Box(body any, seq *sequence.Sequence, headers map[string]string) ([]byte, error) {
	bodyEnc, err := compress(body)
	if err != nil {
		return nil, fmt.Errorf("envelope: compressing body: %w", err)
	}

	var seqBytes []byte
	if seq != nil {
		seqBytes, err = seq.Serialize()
		if err != nil {
			return nil, fmt.Errorf("envelope: serializing sequence: %w", err)
		}
	} else {
		seqBytes = []byte(`{"isSequence":false,"steps":[],"responses":{}}`)
	}
	seqEnc := base64.StdEncoding.EncodeToString(zstdEncoder.EncodeAll(seqBytes, nil))

	headersEnc, err := compress(headers)
	if err != nil {
		return nil, fmt.Errorf("envelope: compressing headers: %w", err)
	}

	return json.Marshal(Envelope{
		Type:     orchestratedMarker,
		Body:     bodyEnc,
		Sequence: seqEnc,
		Headers:  headersEnc,
	})
}

// looksLikeGateway reports whether the raw event has the gateway-proxy
// shape: a `headers` object plus the typical proxy fields (§4.1).
func looksLikeGateway(raw map[string]json.RawMessage) bool {
	_, hasHeaders := raw["headers"]
	_, hasBody := raw["body"]
	_, hasRequestContext := raw["requestContext"]
	return hasHeaders && (hasBody || hasRequestContext)
}

func looksLikeOrchestrated(raw map[string]json.RawMessage) bool {
	typeField, ok := raw["type"]
	if !ok {
		return false
	}
	var t string
	if err := json.Unmarshal(typeField, &t); err != nil {
		return false
	}
	return t == orchestratedMarker
}

// Unbox recognizes the three event shapes and returns the normalized
// request/sequence/headers/gateway tuple (§4.1).
func Unbox(event []byte) (Unboxed, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(event, &raw); err != nil {
		// Malformed envelopes synthesize an empty sequence and continue
		// with a bare request (§4.5 step 1).
		return Unboxed{Request: map[string]any{}, Sequence: sequence.New()}, nil
	}

	switch {
	case looksLikeOrchestrated(raw):
		return unboxOrchestrated(raw)
	case looksLikeGateway(raw):
		return unboxGateway(event)
	default:
		return unboxBare(raw)
	}
}

func unboxGateway(event []byte) (Unboxed, error) {
	var gw GatewayRequest
	if err := json.Unmarshal(event, &gw); err != nil {
		return Unboxed{}, fmt.Errorf("envelope: unbox gateway: %w", err)
	}

	request := map[string]any{}
	if gw.Body != "" {
		if err := json.Unmarshal([]byte(gw.Body), &request); err != nil {
			// A non-JSON body is passed through as-is under a raw key
			// rather than failing the whole invocation.
			request = map[string]any{"_rawBody": gw.Body}
		}
	}

	return Unboxed{
		Request:  request,
		Sequence: sequence.New(),
		Headers:  gw.Headers,
		Gateway:  &gw,
	}, nil
}

func unboxOrchestrated(raw map[string]json.RawMessage) (Unboxed, error) {
	var env Envelope
	if typeRaw, ok := raw["type"]; ok {
		_ = json.Unmarshal(typeRaw, &env.Type)
	}
	if bodyRaw, ok := raw["body"]; ok {
		_ = json.Unmarshal(bodyRaw, &env.Body)
	}
	if seqRaw, ok := raw["sequence"]; ok {
		_ = json.Unmarshal(seqRaw, &env.Sequence)
	}
	if headersRaw, ok := raw["headers"]; ok {
		_ = json.Unmarshal(headersRaw, &env.Headers)
	}

	request := map[string]any{}
	if err := decompress(env.Body, &request); err != nil {
		return Unboxed{}, fmt.Errorf("envelope: decompressing body: %w", err)
	}

	seqBytes := decompressBytes(env.Sequence)
	if seqBytes == nil {
		seqBytes = []byte(`{"isSequence":false,"steps":[],"responses":{}}`)
	}
	seq, err := sequence.Deserialize(seqBytes)
	if err != nil {
		return Unboxed{}, fmt.Errorf("envelope: deserializing sequence: %w", err)
	}

	headers := map[string]string{}
	if err := decompress(env.Headers, &headers); err != nil {
		return Unboxed{}, fmt.Errorf("envelope: decompressing headers: %w", err)
	}

	return Unboxed{Request: request, Sequence: seq, Headers: headers}, nil
}

func unboxBare(raw map[string]json.RawMessage) (Unboxed, error) {
	request := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		_ = json.Unmarshal(v, &val)
		request[k] = val
	}

	seq := sequence.New()
	if stepsRaw, ok := request["_sequence"]; ok {
		delete(request, "_sequence")
		stepsJSON, err := json.Marshal(stepsRaw)
		if err == nil {
			var steps []*sequence.Step
			if err := json.Unmarshal(stepsJSON, &steps); err == nil {
				_ = seq.IngestSteps(request, steps)
			}
		}
	}

	return Unboxed{Request: request, Sequence: seq}, nil
}
