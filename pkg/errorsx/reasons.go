package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonAIConnect ReasonCode = "ai_connect"
	ReasonAISend    ReasonCode = "ai_send"
	ReasonAIClosed  ReasonCode = "ai_closed"

	ReasonCallerSend   ReasonCode = "caller_send"
	ReasonCallerClosed ReasonCode = "caller_closed"

	ReasonMalformedEvent ReasonCode = "malformed_event"
	ReasonClockAnomaly   ReasonCode = "clock_anomaly"

	ReasonTransportInvalidSignature ReasonCode = "webhook_invalid_signature"
	ReasonConfigMissing             ReasonCode = "config_missing"
)
