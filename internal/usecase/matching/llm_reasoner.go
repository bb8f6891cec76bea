package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"homematch/internal/errs"
	"homematch/internal/ports"
	"homematch/internal/usecase/llmjson"
)

var ErrEmptyRanking = errors.New("ranking response has no usable matches")

const rankSystemPrompt = "You are a contractor matching engine for a home-services marketplace. " +
	"You answer with JSON only."

type rankResponse struct {
	Matches []rankResponseMatch `json:"matches" jsonschema:"minItems=1"`
}

type rankResponseMatch struct {
	ContractorID string `json:"contractor_id" jsonschema:"description=id of a contractor from the list"`
	Reason       string `json:"reason" jsonschema:"description=one short sentence explaining the fit"`
}

// LLMReasoner ranks candidates by prompting a Completer. Prose or fences
// around the JSON answer are tolerated.
type LLMReasoner struct {
	completer ports.Completer
	schema    string
}

var _ ports.MatchReasoner = (*LLMReasoner)(nil)

func NewLLMReasoner(completer ports.Completer) *LLMReasoner {
	return &LLMReasoner{completer: completer, schema: responseSchema()}
}

func responseSchema() string {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	raw, err := json.Marshal(reflector.Reflect(&rankResponse{}))
	if err != nil {
		return `{"type":"object"}`
	}
	return string(raw)
}

func (r *LLMReasoner) Rank(ctx context.Context, req ports.RankRequest) (ports.RankResult, error) {
	prompt := BuildRankPrompt(req, r.schema)
	trace := map[string]any{
		"provider": r.completer.Name(),
		"prompt":   prompt,
	}

	raw, err := r.completer.Complete(ctx, ports.CompletionRequest{
		System:    rankSystemPrompt,
		Prompt:    prompt,
		MaxTokens: 512,
	})
	if err != nil {
		return ports.RankResult{Trace: trace}, errs.Wrap(err, "complete ranking prompt")
	}
	trace["response"] = raw

	picks, err := ParseRankResponse(raw)
	if err != nil {
		return ports.RankResult{Trace: trace}, err
	}
	return ports.RankResult{Picks: picks, Trace: trace}, nil
}

// BuildRankPrompt renders the job, the annotated candidates and the
// required answer shape.
func BuildRankPrompt(req ports.RankRequest, schema string) string {
	picks := req.Picks
	if picks <= 0 {
		picks = DefaultPicks
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Given a job and a list of contractors, select the top %d best matches.\n\n", picks)
	b.WriteString("Job details:\n")
	fmt.Fprintf(&b, "- Category: %s\n", req.Category)
	fmt.Fprintf(&b, "- Description: %s\n", req.Description)
	fmt.Fprintf(&b, "- Urgency: %s\n", req.Urgency)
	fmt.Fprintf(&b, "- Zip code: %s\n\n", req.Zip)

	b.WriteString("Contractors:\n")
	emergingID := ""
	for _, c := range req.Candidates {
		rating := "N/A"
		if c.RatingAvg != nil {
			rating = fmt.Sprintf("%.1f", *c.RatingAvg)
		}
		fmt.Fprintf(&b, "- id: %s, name: %s, trades: %s, rating: %s (%d reviews), bio: %s",
			c.ContractorID, c.FullName, strings.Join(c.Trades, ", "), rating, c.RatingCount, oneLine(c.Bio))
		if c.Emerging {
			b.WriteString(" [EMERGING]")
			emergingID = c.ContractorID
		}
		b.WriteString("\n")
	}

	if emergingID != "" {
		fmt.Fprintf(&b, "\nThe contractor marked [EMERGING] (id %s) is new to the platform. "+
			"One of your %d picks MUST be this contractor. This is a hard requirement.\n", emergingID, picks)
	}

	fmt.Fprintf(&b, "\nRespond ONLY with one JSON object (no explanation, no markdown) with exactly %d entries in \"matches\", "+
		"matching this JSON schema:\n%s\n", picks, schema)
	return b.String()
}

// ParseRankResponse extracts the picks from a model answer. Extra prose or
// code fences around the JSON are tolerated.
func ParseRankResponse(raw string) ([]ports.RankedPick, error) {
	obj, err := llmjson.ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	matches := gjson.Get(obj, "matches")
	if !matches.IsArray() {
		return nil, fmt.Errorf("%w: missing matches array", ErrEmptyRanking)
	}

	out := make([]ports.RankedPick, 0, 3)
	for _, item := range matches.Array() {
		if !item.IsObject() {
			continue
		}
		id := llmjson.String(item, "contractor_id")
		if id == "" {
			id = llmjson.String(item, "id")
		}
		if id == "" {
			continue
		}
		out = append(out, ports.RankedPick{
			ContractorID: id,
			Reason:       oneLine(llmjson.String(item, "reason")),
		})
	}
	if len(out) == 0 {
		return nil, ErrEmptyRanking
	}
	return out, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
