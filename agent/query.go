package agent

import (
	"context"

	"github.com/martinemde/openagent/openaichat"
)

// BlockResult carries one finalized content block or the error that ended
// the turn. At most one BlockResult on a channel has a non-nil Err, and it
// is always the last one delivered.
type BlockResult struct {
	Block openaichat.ContentBlock
	Err   error
}

// Query runs a single prompt through a throwaway session and streams the
// finalized blocks on the returned channel. The channel is closed when the
// turn completes. Query sessions carry no tools; use a Client for
// tool-calling sessions.
func Query(ctx context.Context, prompt string, opts Options) (<-chan BlockResult, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Send(ctx, prompt); err != nil {
		client.Close()
		return nil, err
	}

	out := make(chan BlockResult)
	go func() {
		defer close(out)
		defer client.Close()
		for {
			block, err := client.Receive(ctx)
			if err != nil {
				select {
				case out <- BlockResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if block == nil {
				return
			}
			select {
			case out <- BlockResult{Block: *block}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
