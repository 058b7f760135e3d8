package ingest

import (
	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/codepr/tts/pkg/log"
	natsclient "github.com/codepr/tts/pkg/nats"
)

// Subscribe registers one NATS subscription per subject, decoding every
// message as a line-protocol batch and enqueuing its points onto ing. It
// returns as soon as every subscription is established; decoding happens
// asynchronously on the NATS client's own goroutines.
func Subscribe(client *natsclient.Client, subjects []string, ing *Ingester) error {
	for _, subject := range subjects {
		subject := subject
		err := client.Subscribe(subject, func(_ string, data []byte) {
			dec := lineprotocol.NewDecoderWithBytes(data)
			if err := DecodeLine(dec, ing); err != nil {
				log.Errorf("[INGEST] subject %q: %v", subject, err)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
