package webhook

import "time"

/* Event is one inbound notification from the telephony platform
 * Uses value semantics as it represents data, not behavior
 * Payload holds the exact bytes received so signatures can be checked against them
 */
type Event struct {
	ID             string
	Type           string
	Timestamp      time.Time
	SubscriptionID string
	Payload        []byte
	Signature      string
}
