package push

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultChunkSize matches the FCM multicast cap of 500 tokens per call
	DefaultChunkSize = 500
	// DefaultWorkers bounds how many chunk calls run at once
	DefaultWorkers = 2
	// DefaultChunkTimeout bounds one gateway call
	DefaultChunkTimeout = 10 * time.Second
)

// Config tunes the dispatcher. Zero values fall back to the defaults above.
type Config struct {
	ChunkSize int
	Workers   int
	Timeout   time.Duration
}

// Result is the aggregate of one Send: counts plus one outcome per input
// token, in the original token order.
type Result struct {
	SuccessCount int
	FailureCount int
	Outcomes     []TokenOutcome
}

// Dispatcher splits a token list into gateway-sized chunks and sends them
// through a bounded worker pool. Chunk results are reassembled by chunk
// offset, so the outcome order is independent of completion order. A chunk
// whose gateway call fails (or times out) yields a transient failure outcome
// for each of its tokens; the remaining chunks still run.
type Dispatcher struct {
	gateway   Gateway
	chunkSize int
	workers   int
	timeout   time.Duration
}

// NewDispatcher wires a dispatcher around an injected gateway
func NewDispatcher(gateway Gateway, cfg Config) *Dispatcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChunkTimeout
	}
	return &Dispatcher{
		gateway:   gateway,
		chunkSize: cfg.ChunkSize,
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
	}
}

// Send pushes msg to every token and returns one outcome per token in the
// original order. It never returns an error: delivery failures, including
// whole-chunk transport failures, are absorbed into the per-token outcomes.
func (d *Dispatcher) Send(ctx context.Context, tokens []string, msg *Message) Result {
	if len(tokens) == 0 {
		return Result{Outcomes: []TokenOutcome{}}
	}

	type chunk struct {
		offset int
		tokens []string
	}

	chunks := make([]chunk, 0, (len(tokens)+d.chunkSize-1)/d.chunkSize)
	for start := 0; start < len(tokens); start += d.chunkSize {
		end := start + d.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, chunk{offset: start, tokens: tokens[start:end]})
	}

	outcomes := make([]TokenOutcome, len(tokens))

	jobs := make(chan chunk)
	var wg sync.WaitGroup

	workers := d.workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				d.sendChunk(ctx, c.tokens, msg, outcomes[c.offset:c.offset+len(c.tokens)])
			}
		}()
	}

	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	result := Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}
	return result
}

// sendChunk fills dst (len == len(tokens)) with the chunk's outcomes
func (d *Dispatcher) sendChunk(ctx context.Context, tokens []string, msg *Message, dst []TokenOutcome) {
	chunkCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outs, err := d.gateway.SendBatch(chunkCtx, tokens, msg)
	if err != nil || len(outs) != len(tokens) {
		errMsg := "gateway returned a misaligned response"
		if err != nil {
			errMsg = err.Error()
		}
		for i, token := range tokens {
			dst[i] = TokenOutcome{
				Token:        token,
				Success:      false,
				ErrorCode:    "transport-error",
				ErrorMessage: errMsg,
				Class:        ClassTransient,
			}
		}
		return
	}
	copy(dst, outs)
}
