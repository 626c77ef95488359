package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/danmuck/dprint-plugin-csharpier/internal/cancellation"
	"github.com/danmuck/dprint-plugin-csharpier/internal/formatconfig"
	"github.com/danmuck/dprint-plugin-csharpier/internal/formatter"
	"github.com/danmuck/dprint-plugin-csharpier/internal/observability"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

var ErrNoTransformer = errors.New("worker: transformer is required")

// DefaultDrainTimeout bounds how long Run waits for cancelled formats to reply.
const DefaultDrainTimeout = time.Second

// DispatcherConfig wires a Dispatcher. Nil registries are created fresh.
type DispatcherConfig struct {
	Transformer          formatter.Transformer
	Configs              *formatconfig.Registry
	Cancellations        *cancellation.Registry
	Metrics              *observability.Metrics
	Logger               zerolog.Logger
	Version              string
	MaxConcurrentFormats int
	DrainTimeout         time.Duration
}

// Dispatcher reads requests one at a time and routes them by kind. Format
// requests run on their own goroutines so CancelFormat stays reachable.
type Dispatcher struct {
	engine   formatter.Transformer
	configs  *formatconfig.Registry
	tokens   *cancellation.Registry
	metrics  *observability.Metrics
	log      zerolog.Logger
	payloads payloads
	slots    *semaphore.Weighted
	drainFor time.Duration

	inflight sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Transformer == nil {
		return nil, ErrNoTransformer
	}
	p, err := newPayloads(cfg.Version)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		engine:   cfg.Transformer,
		configs:  cfg.Configs,
		tokens:   cfg.Cancellations,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		payloads: p,
		drainFor: cfg.DrainTimeout,
	}
	if d.drainFor <= 0 {
		d.drainFor = DefaultDrainTimeout
	}
	if d.configs == nil {
		d.configs = formatconfig.NewRegistry()
	}
	if d.tokens == nil {
		d.tokens = cancellation.NewRegistry()
	}
	if cfg.MaxConcurrentFormats > 0 {
		d.slots = semaphore.NewWeighted(int64(cfg.MaxConcurrentFormats))
	}
	return d, nil
}

type decoded struct {
	msg protocol.Message
	err error
}

// Run serves requests from r until Shutdown, a clean end of input, a fatal
// stream error or ctx cancellation. On the way out every in-flight format is
// cancelled and Run waits up to the drain timeout for their replies.
func (d *Dispatcher) Run(ctx context.Context, r *frame.Reader, w io.Writer) error {
	resp := newResponder(w)
	defer d.drain()

	msgs := make(chan decoded)
	resume := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)

	// one decode per resume; nothing is read after Shutdown
	go func() {
		for {
			msg, err := protocol.Decode(r)
			select {
			case msgs <- decoded{msg: msg, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
			select {
			case <-resume:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int("in_flight", d.tokens.Len()).Msg("dispatcher cancelled")
			return ctx.Err()
		case in := <-msgs:
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					d.log.Info().Msg("input closed")
					return nil
				}
				d.log.Error().Err(in.err).Msg("unreadable input stream")
				return fmt.Errorf("worker: read message: %w", in.err)
			}
			stop, err := d.dispatch(ctx, resp, in.msg)
			if err != nil {
				d.log.Error().Err(err).Msg("write response failed")
				return fmt.Errorf("worker: write response: %w", err)
			}
			if stop {
				d.log.Info().Uint32("message_id", in.msg.ID()).Msg("shutdown requested")
				return nil
			}
			if err := resp.Err(); err != nil {
				return fmt.Errorf("worker: write response: %w", err)
			}
			resume <- struct{}{}
		}
	}
}

// dispatch handles one request. The returned error is an output failure only;
// handler failures become ErrorResponses for the request id.
func (d *Dispatcher) dispatch(ctx context.Context, resp *responder, msg protocol.Message) (stop bool, err error) {
	kind := msg.Kind()
	d.metrics.RecordMessage(kind.String())
	d.log.Debug().Uint32("message_id", msg.ID()).Str("kind", kind.String()).Msg("request")

	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Interface("panic", p).Str("kind", kind.String()).Msg("handler panic")
			stop = false
			err = resp.fail(msg.ID(), fmt.Sprintf("%s handler panic: %v", kind, p))
		}
	}()

	switch m := msg.(type) {
	case *protocol.Shutdown:
		return true, nil
	case *protocol.Active:
		return false, resp.success(m.MessageID)
	case *protocol.GetPluginInfo:
		return false, resp.data(m.MessageID, d.payloads.pluginInfo)
	case *protocol.GetLicenseText:
		return false, resp.data(m.MessageID, d.payloads.license)
	case *protocol.GetFileMatchingInfo:
		return false, resp.data(m.MessageID, d.payloads.fileMatching)
	case *protocol.CheckConfigUpdates:
		return false, resp.data(m.MessageID, d.payloads.updates)
	case *protocol.RegisterConfig:
		return false, d.registerConfig(resp, m)
	case *protocol.ReleaseConfig:
		d.configs.Release(m.ConfigID)
		d.metrics.SetRegisteredConfigs(d.configs.Len())
		return false, resp.success(m.MessageID)
	case *protocol.GetConfigDiagnostics:
		diagnostics, err := d.configs.Diagnostics(m.ConfigID)
		return false, d.replyJSON(resp, m.MessageID, diagnostics, err)
	case *protocol.GetResolvedConfig:
		resolved, err := d.configs.Get(m.ConfigID)
		return false, d.replyJSON(resp, m.MessageID, resolved, err)
	case *protocol.FormatText:
		return false, d.startFormat(ctx, resp, m)
	case *protocol.CancelFormat:
		found := d.tokens.Cancel(m.OriginalMessageID)
		d.metrics.RecordCancel(found)
		d.log.Debug().Uint32("original_message_id", m.OriginalMessageID).Bool("found", found).Msg("cancel format")
		return false, nil
	case *protocol.HostFormat:
		return false, resp.fail(m.MessageID, hostFormatError)
	case *protocol.Success, *protocol.DataResponse, *protocol.ErrorResponse, *protocol.FormatTextResponse:
		return false, nil
	default:
		panic(fmt.Sprintf("unroutable message kind %s", kind))
	}
}

// drain cancels in-flight formats and waits for them to reply. Engines that
// ignore cancellation are abandoned once the drain timeout passes.
func (d *Dispatcher) drain() {
	if n := d.tokens.CancelAll(); n > 0 {
		d.log.Debug().Int("in_flight", n).Msg("cancelling in-flight formats")
	}
	finished := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(finished)
	}()
	timer := time.NewTimer(d.drainFor)
	defer timer.Stop()
	select {
	case <-finished:
	case <-timer.C:
		d.log.Warn().
			Int("in_flight", d.tokens.Len()).
			Dur("timeout", d.drainFor).
			Msg("in-flight formats ignored cancellation; returning without their replies")
	}
}

func (d *Dispatcher) registerConfig(resp *responder, m *protocol.RegisterConfig) error {
	if err := d.configs.Register(m.ConfigID, m.GlobalConfigData, m.PluginConfigData); err != nil {
		d.log.Warn().Err(err).Uint32("config_id", m.ConfigID).Msg("register config rejected")
		return resp.fail(m.MessageID, err.Error())
	}
	d.metrics.SetRegisteredConfigs(d.configs.Len())
	return resp.success(m.MessageID)
}

func (d *Dispatcher) replyJSON(resp *responder, original uint32, v any, err error) error {
	if err != nil {
		return resp.fail(original, err.Error())
	}
	data, err := json.Marshal(v)
	if err != nil {
		return resp.fail(original, err.Error())
	}
	return resp.data(original, data)
}

// startFormat resolves options and registers the cancellation handle in the
// read loop, then hands the transform to its own goroutine.
func (d *Dispatcher) startFormat(ctx context.Context, resp *responder, m *protocol.FormatText) error {
	stored, err := d.configs.Lookup(m.ConfigID)
	if err != nil {
		return resp.fail(m.MessageID, err.Error())
	}
	effective := stored.Combined()
	override, err := formatconfig.DecodePlugin(m.OverrideConfig)
	if err != nil {
		return resp.fail(m.MessageID, err.Error())
	}
	if !override.IsEmpty() {
		effective = effective.Combine(override)
	}

	handle, err := d.tokens.Register(ctx, m.MessageID)
	if err != nil {
		return resp.fail(m.MessageID, err.Error())
	}

	req := formatter.Request{
		FilePath:  string(m.FilePath),
		Text:      m.FileText,
		StartByte: m.StartByteIndex,
		EndByte:   m.EndByteIndex,
		Options:   formatter.OptionsFrom(effective),
	}
	d.inflight.Add(1)
	go d.runFormat(handle, resp, req)
	return nil
}

func (d *Dispatcher) runFormat(handle *cancellation.Handle, resp *responder, req formatter.Request) {
	defer d.inflight.Done()
	id := handle.ID()
	finish := d.metrics.FormatStarted()

	out, err := d.transform(handle.Context(), req)
	if err == nil && handle.Cancelled() {
		d.log.Debug().Uint32("message_id", id).Msg("engine finished after cancellation; sending its result")
	}

	d.tokens.Take(id)
	handle.Cancel()

	var writeErr error
	switch {
	case err == nil && bytes.Equal(out, req.Text):
		finish(observability.OutcomeUnchanged)
		writeErr = resp.formatResult(id, nil)
	case err == nil:
		if out == nil {
			out = []byte{}
		}
		finish(observability.OutcomeChanged)
		writeErr = resp.formatResult(id, out)
	case isCancelled(err):
		finish(observability.OutcomeCancelled)
		d.log.Debug().Uint32("message_id", id).Str("file", req.FilePath).Msg("format cancelled")
		writeErr = resp.fail(id, cancelledError)
	default:
		finish(observability.OutcomeError)
		d.log.Warn().Err(err).Uint32("message_id", id).Str("file", req.FilePath).Msg("format failed")
		writeErr = resp.fail(id, err.Error())
	}
	if writeErr != nil {
		d.log.Error().Err(writeErr).Uint32("message_id", id).Msg("write format response failed")
	}
}

// transform bounds concurrency and converts engine panics into errors.
func (d *Dispatcher) transform(ctx context.Context, req formatter.Request) (out []byte, err error) {
	if d.slots != nil {
		if err := d.slots.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %w", formatter.ErrCancelled, err)
		}
		defer d.slots.Release(1)
	}
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Interface("panic", p).Str("file", req.FilePath).Msg("transformer panic")
			err = fmt.Errorf("worker: transformer panic: %v", p)
		}
	}()
	return d.engine.Transform(ctx, req)
}

func isCancelled(err error) bool {
	return errors.Is(err, formatter.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}
