package transcription

import (
	"context"

	"clipper/internal/ledger"
	"clipper/internal/services/whisper"
)

// FromWhisper adapts a whisper client to the Transcriber interface.
func FromWhisper(client *whisper.Client) Transcriber {
	return TranscriberFunc(func(ctx context.Context, itemID, path string) ([]ledger.SegmentInput, error) {
		segments, err := client.Transcribe(ctx, itemID, path)
		if err != nil {
			return nil, err
		}
		out := make([]ledger.SegmentInput, 0, len(segments))
		for _, seg := range segments {
			out = append(out, ledger.SegmentInput{StartSec: seg.Start, EndSec: seg.End, Text: seg.Text})
		}
		return out, nil
	})
}
