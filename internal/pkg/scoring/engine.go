package scoring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/intervu/intervu/internal/pkg/persistence"
)

// ErrScoreUnavailable - session has no keywords or no transcripts yet.
// A legitimate pending state, not a failure.
var ErrScoreUnavailable = errors.New("score unavailable")

// DB provides scoring persistence
type DB interface {
	LoadSession(ctx context.Context, id string) (*persistence.Session, error)
	LoadKeywords(ctx context.Context, ownerID string) ([]*persistence.KeywordDefinition, error)
	LoadTranscripts(ctx context.Context, sessionID string) ([]*persistence.Transcript, error)
	InsertScore(ctx context.Context, item *persistence.SessionKeywordScore) error
}

// Engine recomputes session scores from transcripts and the owner's rubric
type Engine struct {
	db DB
}

// NewEngine creates engine instance
func NewEngine(db DB) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	return &Engine{db: db}, nil
}

// Result holds computed score values
type Result struct {
	Overall    float64
	Technical  float64
	SoftSkills float64
	Experience float64
	Found      int
	Possible   int
	Breakdown  map[string][]string
}

// Recompute calculates a fresh score snapshot for the session from all its
// transcripts and persists it as a new row. Returns ErrScoreUnavailable when
// there is nothing to score yet.
func (e *Engine) Recompute(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("no session ID")
	}
	ses, err := e.db.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("can't load session: %w", err)
	}
	if ses == nil {
		return nil, fmt.Errorf("unknown session '%s'", sessionID)
	}
	keywords, err := e.db.LoadKeywords(ctx, ses.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("can't load keywords: %w", err)
	}
	transcripts, err := e.db.LoadTranscripts(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("can't load transcripts: %w", err)
	}
	if len(keywords) == 0 || len(transcripts) == 0 {
		goapp.Log.Info().Str("session", sessionID).Int("keywords", len(keywords)).
			Int("transcripts", len(transcripts)).Msg("nothing to score")
		return nil, ErrScoreUnavailable
	}
	cmp := Compute(keywords, transcripts)
	now := time.Now()
	res := &persistence.SessionKeywordScore{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		OwnerID:       ses.OwnerID,
		Overall:       cmp.Overall,
		Technical:     cmp.Technical,
		SoftSkills:    cmp.SoftSkills,
		Experience:    cmp.Experience,
		FoundCount:    int32(cmp.Found),
		PossibleCount: int32(cmp.Possible),
		Breakdown:     cmp.Breakdown,
		Calculated:    now,
		Updated:       now,
	}
	if err := e.db.InsertScore(ctx, res); err != nil {
		return nil, fmt.Errorf("can't save score: %w", err)
	}
	goapp.Log.Info().Str("session", sessionID).Float64("overall", res.Overall).
		Int32("found", res.FoundCount).Int32("possible", res.PossibleCount).Msg("score recomputed")
	return res, nil
}

// Compute is the pure scoring function: same keywords and transcripts always
// yield the same values. A keyword counts once no matter how often it occurs,
// matched on word boundaries against the lower-cased joined transcript text.
// Keyword weight is not applied, every keyword counts equally.
func Compute(keywords []*persistence.KeywordDefinition, transcripts []*persistence.Transcript) *Result {
	texts := make([]string, 0, len(transcripts))
	for _, tr := range transcripts {
		texts = append(texts, tr.Text)
	}
	corpus := strings.ToLower(strings.Join(texts, " "))

	res := &Result{Breakdown: map[string][]string{}}
	foundByCat, totalByCat := map[string]int{}, map[string]int{}
	for _, kw := range keywords {
		res.Possible++
		totalByCat[kw.Category]++
		if matchKeyword(corpus, kw.Keyword) {
			res.Found++
			foundByCat[kw.Category]++
			res.Breakdown[kw.Category] = append(res.Breakdown[kw.Category], strings.ToLower(strings.TrimSpace(kw.Keyword)))
		}
	}
	for _, c := range res.Breakdown {
		sort.Strings(c)
	}
	res.Overall = percentage(res.Found, res.Possible)
	res.Technical = percentage(foundByCat[persistence.CategoryTechnical], totalByCat[persistence.CategoryTechnical])
	res.SoftSkills = percentage(foundByCat[persistence.CategorySoftSkills], totalByCat[persistence.CategorySoftSkills])
	res.Experience = percentage(foundByCat[persistence.CategoryExperience], totalByCat[persistence.CategoryExperience])
	return res
}

// percentage guards the zero-keyword case, never NaN
func percentage(found, possible int) float64 {
	if possible == 0 {
		return 0
	}
	return 100 * float64(found) / float64(possible)
}

// matchKeyword tests a whole-word match, so "java" does not hit inside "javascript"
func matchKeyword(corpus, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("keyword", keyword).Msg("can't compile keyword")
		return false
	}
	return re.MatchString(corpus)
}
