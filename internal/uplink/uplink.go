// Package uplink parses the envelopes in which the network delivers payloads.
package uplink

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrEmptyPayload    = errors.New("empty payload")
	ErrInvalidEncoding = errors.New("invalid payload encoding")
	ErrMissingField    = errors.New("missing uplink field")
)

// Encoding names an input shape.
type Encoding string

const (
	EncodingAuto   Encoding = "auto"
	EncodingJSON   Encoding = "json"
	EncodingHex    Encoding = "hex"
	EncodingBase64 Encoding = "base64"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingAuto, EncodingJSON, EncodingHex, EncodingBase64:
		return e, nil
	case "":
		return EncodingAuto, nil
	default:
		return "", fmt.Errorf("%w: unknown encoding %q", ErrInvalidEncoding, s)
	}
}

// Uplink is one payload together with the port and device it arrived from.
type Uplink struct {
	DeviceID   string    `json:"deviceId"`
	Port       int       `json:"port"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Defaults fill in what a bare hex or base64 line does not carry.
type Defaults struct {
	DeviceID string
	Port     int
}

// v3Message is the subset of a TTN v3 webhook uplink we need.
type v3Message struct {
	EndDeviceIDs struct {
		DeviceID string `json:"device_id"`
		DevEUI   string `json:"dev_eui"`
	} `json:"end_device_ids"`
	ReceivedAt    time.Time `json:"received_at"`
	UplinkMessage *struct {
		FPort      *int   `json:"f_port"`
		FRMPayload []byte `json:"frm_payload"`
	} `json:"uplink_message"`
}

// v2Message is the TTN v2 HTTP integration uplink.
type v2Message struct {
	DevID      string `json:"dev_id"`
	HardwareID string `json:"hardware_serial"`
	Port       *int   `json:"port"`
	PayloadRaw []byte `json:"payload_raw"`
	Metadata   struct {
		Time time.Time `json:"time"`
	} `json:"metadata"`
}

// Parse reads one input line in the given encoding.
func Parse(line []byte, enc Encoding, defaults Defaults) (Uplink, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Uplink{}, ErrEmptyPayload
	}

	if enc == EncodingAuto {
		enc = Detect(line)
	}

	switch enc {
	case EncodingJSON:
		return ParseJSON(line)
	case EncodingHex:
		payload, err := DecodeHex(string(line))
		if err != nil {
			return Uplink{}, err
		}
		return raw(payload, defaults), nil
	case EncodingBase64:
		payload, err := DecodeBase64(string(line))
		if err != nil {
			return Uplink{}, err
		}
		return raw(payload, defaults), nil
	default:
		return Uplink{}, fmt.Errorf("%w: unknown encoding %q", ErrInvalidEncoding, enc)
	}
}

func raw(payload []byte, defaults Defaults) Uplink {
	return Uplink{
		DeviceID:   defaults.DeviceID,
		Port:       defaults.Port,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}

// Detect guesses the encoding of a line: JSON objects start with '{', lines
// made only of hex digits (spaces and a 0x prefix allowed) are hex, anything
// else is taken as base64.
func Detect(line []byte) Encoding {
	line = bytes.TrimSpace(line)
	if len(line) > 0 && line[0] == '{' {
		return EncodingJSON
	}
	if isHex(normalizeHex(string(line))) {
		return EncodingHex
	}
	return EncodingBase64
}

// ParseJSON accepts TTN v3 webhook and TTN v2 integration uplinks.
func ParseJSON(data []byte) (Uplink, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Uplink{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if _, ok := probe["uplink_message"]; ok {
		return parseV3(data)
	}
	if _, ok := probe["payload_raw"]; ok {
		return parseV2(data)
	}
	return Uplink{}, fmt.Errorf("%w: neither uplink_message nor payload_raw present", ErrMissingField)
}

func parseV3(data []byte) (Uplink, error) {
	var msg v3Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Uplink{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if msg.UplinkMessage == nil {
		return Uplink{}, fmt.Errorf("%w: uplink_message", ErrMissingField)
	}
	if len(msg.UplinkMessage.FRMPayload) == 0 {
		return Uplink{}, fmt.Errorf("%w: uplink_message.frm_payload", ErrEmptyPayload)
	}

	deviceID := msg.EndDeviceIDs.DeviceID
	if deviceID == "" {
		deviceID = msg.EndDeviceIDs.DevEUI
	}
	if deviceID == "" {
		return Uplink{}, fmt.Errorf("%w: end_device_ids.device_id", ErrMissingField)
	}

	// f_port is omitted from the JSON when it is 0
	port := 0
	if msg.UplinkMessage.FPort != nil {
		port = *msg.UplinkMessage.FPort
	}

	return Uplink{
		DeviceID:   deviceID,
		Port:       port,
		Payload:    msg.UplinkMessage.FRMPayload,
		ReceivedAt: receivedAt(msg.ReceivedAt),
	}, nil
}

func parseV2(data []byte) (Uplink, error) {
	var msg v2Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Uplink{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(msg.PayloadRaw) == 0 {
		return Uplink{}, fmt.Errorf("%w: payload_raw", ErrEmptyPayload)
	}

	deviceID := msg.DevID
	if deviceID == "" {
		deviceID = msg.HardwareID
	}
	if deviceID == "" {
		return Uplink{}, fmt.Errorf("%w: dev_id", ErrMissingField)
	}
	if msg.Port == nil {
		return Uplink{}, fmt.Errorf("%w: port", ErrMissingField)
	}

	return Uplink{
		DeviceID:   deviceID,
		Port:       *msg.Port,
		Payload:    msg.PayloadRaw,
		ReceivedAt: receivedAt(msg.Metadata.Time),
	}, nil
}

func receivedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// DecodeHex decodes a hex string such as "01 10 27 00" or "0x01102700".
func DecodeHex(s string) ([]byte, error) {
	s = normalizeHex(s)
	if s == "" {
		return nil, ErrEmptyPayload
	}
	payload, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return payload, nil
}

// DecodeBase64 decodes standard base64, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyPayload
	}
	payload, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		payload, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	return payload, nil
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
}

func isHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
