package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"coursewizard/generation"
	"coursewizard/logger"
	"coursewizard/models"
	"coursewizard/prompts"
)

type Mode string

const (
	ModeGenerate  Mode = "generate"
	ModeObjection Mode = "objection"
)

var errNoGenerator = errors.New("wizard: no generator configured")

const (
	defaultTimeout   = 60 * time.Second
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// Request is one prompt resolution. Context holds answers collected so far,
// keyed by question title; PriorMessages are earlier turns, earliest first.
type Request struct {
	Template      string
	Context       models.ContextMap
	Mode          Mode
	PriorMessages []models.Message
	CourseID      string
	StudentID     string
	FirstResponse string // objection mode: the response being objected to
	Objection     string // objection mode: raw objection text
}

// Resolution is the outcome of Resolve. Failed is set when GeneratedText is
// the fallback text.
type Resolution struct {
	Messages      []models.Message
	GeneratedText string
	Diagnostics   []string
	Failed        bool
}

// Config wires a Resolver. Generator is required; the sources are optional
// and a missing source behaves like a failing one.
type Config struct {
	Generator    generation.Generator
	Context      generation.ContextSource
	Instructions generation.InstructionSource
	Logger       *logger.Logger
	Timeout      time.Duration
	CacheSize    int
	CacheTTL     time.Duration
}

// Resolver turns wizard templates into prompts and generated text. Every
// failure is absorbed into a documented default, so none of its methods
// return an error.
type Resolver struct {
	gen          generation.Generator
	contexts     generation.ContextSource
	instructions generation.InstructionSource
	log          *logger.Logger
	timeout      time.Duration
	cache        *expirable.LRU[string, string]
}

func NewResolver(cfg Config) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		gen:          cfg.Generator,
		contexts:     cfg.Context,
		instructions: cfg.Instructions,
		log:          log,
		timeout:      timeout,
		cache:        expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// Resolve builds the messages for req and calls the generator.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	messages, diags := r.BuildMessages(ctx, req)
	text, err := r.generate(ctx, messages)
	if err != nil {
		return Resolution{Messages: messages, GeneratedText: prompts.FallbackText, Diagnostics: diags, Failed: true}
	}
	return Resolution{Messages: messages, GeneratedText: text, Diagnostics: diags}
}

// BuildMessages performs every step of Resolve except the generation call.
func (r *Resolver) BuildMessages(ctx context.Context, req Request) ([]models.Message, []string) {
	if req.Mode == ModeObjection {
		return r.objectionMessages(ctx, req)
	}
	if req.Mode != ModeGenerate && req.Mode != "" {
		r.log.Warn("Unknown resolution mode, generating", "mode", string(req.Mode))
	}

	processed, diags := r.processTemplate(req, r.studentContext(ctx, req))
	return []models.Message{
		{Role: models.RoleSystem, Content: prompts.ConstructGenerateSystemPrompt()},
		{Role: models.RoleUser, Content: processed},
	}, diags
}

func (r *Resolver) objectionMessages(ctx context.Context, req Request) ([]models.Message, []string) {
	var (
		student     models.ContextMap
		instruction string
	)
	// Neither fetch returns an error, so the group only waits.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		student = r.studentContext(gctx, req)
		return nil
	})
	g.Go(func() error {
		instruction = r.objectionInstruction(gctx, req.CourseID)
		return nil
	})
	_ = g.Wait()

	processed, diags := r.processTemplate(req, student)
	system := prompts.ConstructObjectionSystemPrompt(prompts.ObjectionPromptInput{
		Template:       processed,
		FirstResponse:  req.FirstResponse,
		StudentContext: prompts.FormatStudentContext(student),
		PriorTurns:     req.PriorMessages,
		Objection:      req.Objection,
		Instruction:    instruction,
	})
	return []models.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: req.Objection},
	}, diags
}

// processTemplate resolves placeholders against the fetched student context
// overridden by the request's own answers.
func (r *Resolver) processTemplate(req Request, student models.ContextMap) (string, []string) {
	processed, missing := prompts.ResolvePlaceholders(req.Template, student)
	if len(missing) > 0 {
		r.log.Warn("Unresolved template placeholders",
			"course_id", req.CourseID,
			"placeholders", missing,
		)
	}
	return processed, missing
}

// studentContext returns the course's fetched answers merged under the
// request's answers. A failed fetch only loses the fetched part.
func (r *Resolver) studentContext(ctx context.Context, req Request) models.ContextMap {
	fetched := models.ContextMap{}
	if r.contexts == nil {
		return fetched.Merge(req.Context)
	}
	entries, err := r.contexts.FetchContext(ctx, req.CourseID, req.StudentID)
	if err != nil {
		r.log.Warn("Student context unavailable", "course_id", req.CourseID, "error", err)
		return fetched.Merge(req.Context)
	}
	for _, e := range entries {
		if e.CoursePublicID != req.CourseID {
			continue
		}
		if req.StudentID != "" && e.StudentPublicID != "" && e.StudentPublicID != req.StudentID {
			continue
		}
		fetched[e.Question] = e.Answer
	}
	return fetched.Merge(req.Context)
}

func (r *Resolver) generate(ctx context.Context, messages []models.Message) (string, error) {
	if r.gen == nil {
		r.log.Error("Generation failed", "error", "no generator configured")
		return "", errNoGenerator
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, messages)
	if err != nil {
		r.log.Error("Generation failed", "error", err)
		return "", err
	}
	return text, nil
}
