package webhook

import (
	"time"

	"github.com/use-agent/scrapeflow/interpreter"
)

// Attach wires opts' callbacks to deliver each interpreter event
// asynchronously to url, HMAC-signed with secret if non-empty. jobID tags
// every event so one webhook endpoint can multiplex many concurrent runs.
// Binary payloads (screenshots) are summarized by size rather than embedded,
// since webhook endpoints are not expected to accept multi-megabyte bodies.
func Attach(opts *interpreter.Options, url, secret, jobID string) {
	opts.SerializableCallback = func(data any) {
		deliver(url, secret, jobID, "run.record", data)
	}
	opts.BinaryCallback = func(data []byte, mimeType string) {
		deliver(url, secret, jobID, "run.binary", map[string]any{
			"mimeType":  mimeType,
			"sizeBytes": len(data),
		})
	}
	opts.ActiveIDCallback = func(id string) {
		deliver(url, secret, jobID, "run.activeId", id)
	}
	opts.DebugMessageCallback = func(text string) {
		deliver(url, secret, jobID, "run.debug", text)
	}
}

func deliver(url, secret, jobID, eventType string, data any) {
	DeliverAsync(url, secret, &Event{
		Type:      eventType,
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}
