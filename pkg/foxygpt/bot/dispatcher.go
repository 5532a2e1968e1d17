// Package bot wires the pipeline together: the dispatcher runs each
// inbound event through safety gate → perception → transcript → decision →
// reply, and the Discord transport feeds it events and carries its output.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sveny/foxygpt/pkg/foxygpt/audit"
	"github.com/sveny/foxygpt/pkg/foxygpt/engine"
	"github.com/sveny/foxygpt/pkg/foxygpt/transcript"
	"github.com/sveny/foxygpt/pkg/foxygpt/vision"
)

// Event is one inbound message, already filtered to the configured channel
// and stripped of the bot's own traffic.
type Event struct {
	MessageID   string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	Text        string
	Attachments []Attachment
}

// Attachment is an inbound non-text payload, delivered by reference.
type Attachment struct {
	URL         string
	ContentType string
}

// Dispatcher states, in pass order. Terminal states: aborted (logs only),
// suppressed (user turn persisted, no reply), replied (user and assistant
// turns persisted, reply sent). No state is ever revisited within a pass.
const (
	stateReceived          = "received"
	stateSafetyChecked     = "safety_checked"
	stateAborted           = "aborted"
	statePerceptionPending = "perception_pending"
	stateContextualized    = "contextualized"
	stateDecided           = "decided"
	stateSuppressed        = "suppressed"
	stateReplied           = "replied"
)

// SafetyGate classifies inbound text. A returned error is fatal for the
// pass; flagged content is a policy outcome, not an error.
type SafetyGate interface {
	Classify(ctx context.Context, text string) (bool, error)
}

// Captioner converts the first eligible image attachment into text.
type Captioner interface {
	FetchAttachment(ctx context.Context, url string) ([]byte, error)
	Caption(ctx context.Context, image []byte) (string, error)
}

// Decider produces the respond/stay-quiet verdict for a transcript view.
type Decider interface {
	Decide(ctx context.Context, view []transcript.Turn) (engine.Verdict, error)
}

// Generator produces the persona's reply over the full transcript.
type Generator interface {
	Generate(ctx context.Context, turns []transcript.Turn) (string, error)
}

// Transport sends replies and retracts flagged messages at the chat layer.
type Transport interface {
	Send(ctx context.Context, channelID, text string) error
	Retract(ctx context.Context, channelID, messageID string) error
}

// Auditor records policy outcomes and anomalies. May be nil-backed; the
// dispatcher treats audit failures as log-only.
type Auditor interface {
	Record(e audit.Entry) error
}

// Options configures a Dispatcher.
type Options struct {
	Store     *transcript.Store
	Gate      SafetyGate
	Captioner Captioner // nil disables perception; image attachments are ignored
	Decider   Decider
	Generator Generator
	Transport Transport
	Audit     Auditor // nil disables the audit trail

	// DecisionWindow bounds the decision view to the last N turns
	// (plus the system turn); 0 sends the full transcript.
	DecisionWindow int

	Logger *slog.Logger
}

// Dispatcher sequences one pipeline pass per inbound event. Passes for
// distinct events run concurrently and are deliberately not serialized
// against each other; the transcript store's per-call atomic append is the
// only synchronization point.
type Dispatcher struct {
	store     *transcript.Store
	gate      SafetyGate
	captioner Captioner
	decider   Decider
	generator Generator
	transport Transport
	auditor   Auditor
	window    int
	logger    *slog.Logger
}

// New creates a dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:     opts.Store,
		gate:      opts.Gate,
		captioner: opts.Captioner,
		decider:   opts.Decider,
		generator: opts.Generator,
		transport: opts.Transport,
		auditor:   opts.Audit,
		window:    opts.DecisionWindow,
		logger:    logger.With("component", "dispatcher"),
	}
}

// HandleEvent runs one full pipeline pass. It never returns an error and
// never panics outward: a failed pass is logged and must not prevent later
// events from being processed.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) {
	eventID := uuid.NewString()
	log := d.logger.With(
		"event_id", eventID,
		"channel", ev.ChannelID,
		"author", ev.AuthorName,
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline pass panicked", "state", stateAborted, "panic", r)
		}
	}()

	log.Debug("pass started", "state", stateReceived, "text", truncate(ev.Text, 80))

	// ── Safety gate ──
	// Empty text (pure attachment posts) is implicitly clear.
	if ev.Text != "" {
		flagged, err := d.gate.Classify(ctx, ev.Text)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrSafetyService, err)
			log.Error("pass aborted", "state", stateAborted, "error", err)
			d.audit(audit.Entry{Kind: audit.KindSafetyFailure, EventID: eventID,
				ChannelID: ev.ChannelID, AuthorID: ev.AuthorID, AuthorName: ev.AuthorName,
				Content: ev.Text, Detail: err.Error()})
			return
		}
		if flagged {
			if err := d.transport.Retract(ctx, ev.ChannelID, ev.MessageID); err != nil {
				log.Error("failed to retract flagged message", "error", err)
			}
			log.Warn("retracted flagged message", "state", stateAborted,
				"author_id", ev.AuthorID, "text", truncate(ev.Text, 80))
			d.audit(audit.Entry{Kind: audit.KindFlaggedContent, EventID: eventID,
				ChannelID: ev.ChannelID, AuthorID: ev.AuthorID, AuthorName: ev.AuthorName,
				Content: ev.Text})
			return
		}
	}
	log.Debug("safety gate cleared", "state", stateSafetyChecked)

	// ── Perception ──
	// Only the first eligible image attachment is described; further
	// attachments are intentionally ignored. Fetch and caption are distinct
	// failure points: a failed fetch aborts the pass before anything enters
	// the transcript, while a failed caption degrades to the sentinel turn
	// and the pass continues.
	var captionContent string
	if att, ok := firstEligibleImage(ev.Attachments); ok && d.captioner != nil {
		log.Debug("describing attachment", "state", statePerceptionPending, "url", att.URL)

		img, err := d.captioner.FetchAttachment(ctx, att.URL)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrAttachmentFetch, err)
			log.Error("pass aborted", "state", stateAborted, "error", err)
			return
		}

		caption, err := d.captioner.Caption(ctx, img)
		if err != nil {
			log.Warn("captioning failed, committing sentinel caption", "error", err)
			captionContent = vision.SentinelContent()
		} else {
			captionContent = vision.CaptionContent(caption)
		}
	}

	// ── Contextualize ──
	appended := 0
	if ev.Text != "" {
		d.store.Append(transcript.Turn{Role: transcript.RoleUser, Author: ev.AuthorName, Content: ev.Text})
		appended++
	}
	if captionContent != "" {
		d.store.Append(transcript.Turn{Role: transcript.RoleUser, Author: ev.AuthorName, Content: captionContent})
		appended++
	}
	if appended == 0 {
		// Nothing entered the transcript (e.g. a sticker-only post with
		// perception disabled), so there is nothing to decide on.
		log.Debug("nothing to contextualize", "state", stateSuppressed)
		return
	}
	log.Debug("transcript updated", "state", stateContextualized, "turns_added", appended)

	// ── Decide ──
	verdict, err := d.decider.Decide(ctx, d.store.Tail(d.window))
	if err != nil {
		// Fail safe either way: an anchorless or failed verdict never
		// causes a reply. The two causes are audited distinctly.
		verdict.Respond = false
		if errors.Is(err, engine.ErrNoAnchor) {
			log.Warn("verdict anchor missing, defaulting to no reply", "raw", truncate(verdict.Raw, 120))
		} else {
			log.Error("decision call failed, defaulting to no reply", "error", err)
		}
		d.audit(audit.Entry{Kind: audit.KindDecisionAnomaly, EventID: eventID,
			ChannelID: ev.ChannelID, AuthorID: ev.AuthorID, AuthorName: ev.AuthorName,
			Content: ev.Text, Detail: err.Error()})
	}
	log.Debug("verdict reached", "state", stateDecided, "respond", verdict.Respond)

	if !verdict.Respond {
		log.Info("staying quiet", "state", stateSuppressed)
		return
	}

	// ── Reply ──
	reply, err := d.generator.Generate(ctx, d.store.Snapshot())
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrGeneration, err)
		log.Error("pass ended without reply", "state", stateAborted, "error", err)
		d.audit(audit.Entry{Kind: audit.KindGenerationFailure, EventID: eventID,
			ChannelID: ev.ChannelID, AuthorID: ev.AuthorID, AuthorName: ev.AuthorName,
			Content: ev.Text, Detail: err.Error()})
		return
	}

	d.store.Append(transcript.Turn{Role: transcript.RoleAssistant, Content: reply})
	if err := d.transport.Send(ctx, ev.ChannelID, reply); err != nil {
		log.Error("failed to send reply", "error", err)
		return
	}
	log.Info("replied", "state", stateReplied, "reply", truncate(reply, 80))
}

// audit records an entry, tolerating a missing or failing audit log.
func (d *Dispatcher) audit(e audit.Entry) {
	if d.auditor == nil {
		return
	}
	if err := d.auditor.Record(e); err != nil {
		d.logger.Error("failed to write audit entry", "kind", e.Kind, "error", err)
	}
}

// firstEligibleImage returns the first attachment with an image content
// type. Multiple images on one message are not all described.
func firstEligibleImage(atts []Attachment) (Attachment, bool) {
	for _, a := range atts {
		if strings.HasPrefix(a.ContentType, "image/") {
			return a, true
		}
	}
	return Attachment{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
