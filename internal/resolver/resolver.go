// Package resolver implements the ordered answer pipeline: liveness probe,
// greeting, fuzzy knowledge-base match, domain keyword fallback and finally
// the language-model fallback. The first stage that produces an answer wins.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/internal/config"
	"github.com/mueller-baumaschinen/answer-engine/internal/faqindex"
	"github.com/mueller-baumaschinen/answer-engine/internal/llm"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// ErrEmptyMessage is returned when the incoming message is blank.
var ErrEmptyMessage = errors.New("resolver: empty message")

// Source identifies which pipeline stage produced a reply.
type Source string

const (
	SourcePong     Source = "pong"
	SourceGreeting Source = "greeting"
	SourceFAQ      Source = "faq"
	SourceKeyword  Source = "keyword"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Reply is the resolved answer plus its provenance.
type Reply struct {
	Text   string `json:"reply"`
	Source Source `json:"source"`
}

// Options bundles the pipeline and matching settings.
type Options struct {
	Chat  config.ChatConfig
	Index faqindex.Options
}

// Resolver runs the pipeline against the current entry set. The fuzzy index
// is rebuilt lazily whenever the entry set version moves.
type Resolver struct {
	logger    zerolog.Logger
	opts      Options
	coord     *store.Coordinator
	generator llm.Generator // nil when no LLM is configured

	index     atomic.Pointer[faqindex.Index]
	rebuildMu sync.Mutex
	stale     atomic.Bool
}

// New creates a resolver. generator may be nil; the pipeline then degrades to
// the static contact reply where the LLM stage would run.
func New(logger zerolog.Logger, opts Options, coord *store.Coordinator, generator llm.Generator) *Resolver {
	return &Resolver{
		logger:    logger.With().Str("component", "resolver").Logger(),
		opts:      opts,
		coord:     coord,
		generator: generator,
	}
}

// Resolve walks the stages in priority order and returns the first hit.
// history is only ever forwarded to the LLM stage; the engine keeps no
// conversation state. Only a blank message is an error; every other condition
// resolves to some reply.
func (r *Resolver) Resolve(ctx context.Context, message string, history []llm.Message) (Reply, error) {
	normalized := normalize(message)
	if normalized == "" {
		return Reply{}, ErrEmptyMessage
	}

	turnID := uuid.NewString()
	started := time.Now()
	log := r.logger.With().Str("turn_id", turnID).Logger()

	reply := r.resolve(ctx, log, message, normalized, history)

	log.Info().
		Str("source", string(reply.Source)).
		Dur("elapsed", time.Since(started)).
		Msg("message resolved")

	return reply, nil
}

func (r *Resolver) resolve(ctx context.Context, log zerolog.Logger, message, normalized string, history []llm.Message) Reply {
	chat := r.opts.Chat

	if normalized == normalize(chat.ProbeToken) {
		return Reply{Text: chat.ProbeReply, Source: SourcePong}
	}

	for _, g := range chat.Greetings {
		if normalized == normalize(g) {
			return Reply{Text: chat.GreetingReply, Source: SourceGreeting}
		}
	}

	// Fuzzy match runs on the raw message; tokenization handles casing.
	idx := r.currentIndex(ctx)
	if candidates := idx.Search(message); len(candidates) > 0 {
		best := candidates[0]
		if best.Score <= chat.AcceptScore {
			log.Debug().
				Float64("score", best.Score).
				Str("question_asked", message).
				Str("matched_question", best.Entry.Question).
				Str("answer", best.Entry.Answer).
				Msg("knowledge base hit")
			return Reply{Text: best.Entry.Answer, Source: SourceFAQ}
		}
		log.Debug().
			Float64("score", best.Score).
			Float64("accept_score", chat.AcceptScore).
			Msg("best candidate rejected")
	}

	for _, kw := range chat.DomainKeywords {
		if strings.Contains(normalized, kw) {
			return Reply{Text: r.contactReply(), Source: SourceKeyword}
		}
	}

	if r.generator != nil {
		text, err := r.generator.GenerateReply(ctx, message, history)
		if err == nil {
			log.Debug().Msg("llm fallback answered")
			return Reply{Text: text, Source: SourceLLM}
		}
		log.Warn().Err(err).Msg("llm fallback failed, using contact reply")
	}

	return Reply{Text: r.contactReply(), Source: SourceFallback}
}

// MarkStale forces an index rebuild on the next Resolve. Called after writes
// that bypass the version check, such as single appends.
func (r *Resolver) MarkStale() {
	r.stale.Store(true)
}

// IndexSize reports the entry count of the live index, for health reporting.
// A nil index (nothing resolved yet) reports zero.
func (r *Resolver) IndexSize() int {
	if idx := r.index.Load(); idx != nil {
		return idx.Size()
	}
	return 0
}

// currentIndex returns an index matching the current entry set, rebuilding it
// when the set version moved or a write marked it stale. Readers never block
// on each other; only concurrent rebuilds serialize.
func (r *Resolver) currentIndex(ctx context.Context) *faqindex.Index {
	set := r.coord.GetEntries(ctx)

	idx := r.index.Load()
	if idx != nil && idx.Version() == set.Version && !r.stale.Load() {
		return idx
	}

	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	// Another goroutine may have rebuilt while we waited.
	idx = r.index.Load()
	if idx != nil && idx.Version() == set.Version && !r.stale.Load() {
		return idx
	}

	if r.stale.Load() {
		// The version check alone can miss an append that raced the snapshot;
		// re-read so the rebuild sees the latest set.
		set = r.coord.GetEntries(ctx)
		r.stale.Store(false)
	}

	idx = faqindex.Build(set, r.opts.Index)
	r.index.Store(idx)

	r.logger.Debug().
		Int("entries", idx.Size()).
		Str("version", idx.Version()).
		Msg("index rebuilt")

	return idx
}

func (r *Resolver) contactReply() string {
	return fmt.Sprintf("Bitte kontaktieren Sie uns direkt 📧 %s 📞 %s",
		r.opts.Chat.ContactEmail, r.opts.Chat.ContactPhone)
}

// normalize lowercases and collapses all whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
