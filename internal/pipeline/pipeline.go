package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/example/trashvision/internal/classifier"
	"github.com/example/trashvision/internal/taxonomy"
)

// Detection is a selected, labeled, confidence-scored item derived from one
// raw prediction.
type Detection struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Recyclable bool    `json:"recyclable"`
}

// Source identifies which path produced a classification result.
type Source string

const (
	SourcePrimary  Source = "primary_classifier"
	SourceFallback Source = "fallback_heuristic"
)

// Result is the externally visible outcome of one classification request.
// It is assembled once and never mutated afterwards.
type Result struct {
	DetectedItems   []Detection `json:"detected_items"`
	Recommendations []string    `json:"recommendations"`
	Source          Source      `json:"source"`
	Error           *string     `json:"error"`
}

// RecommendationTable holds the guidance templates keyed by item category.
// Each template takes the item type as its single argument. OrganicTypes
// lists the non-recyclable types that should receive compost guidance.
type RecommendationTable struct {
	Recyclable    string
	NonRecyclable string
	Organic       string
	Unknown       string
	Generic       string
	Fallback      string
	OrganicTypes  map[string]struct{}
}

// Pipeline turns raw classifier predictions into a Result. It holds only
// read-only configuration, so one Pipeline serves all requests concurrently.
type Pipeline struct {
	mapper    *taxonomy.Mapper
	threshold float64
	floor     float64
	table     RecommendationTable
}

// New validates the confidence policy and builds a pipeline. Out-of-range
// thresholds are a configuration error and must stop startup, not requests.
func New(mapper *taxonomy.Mapper, threshold, floor float64, table RecommendationTable) (*Pipeline, error) {
	if mapper == nil {
		return nil, fmt.Errorf("taxonomy mapper is required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v outside [0,1]", threshold)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("weak-signal floor %v outside [0,1]", floor)
	}
	if floor > threshold {
		return nil, fmt.Errorf("weak-signal floor %v exceeds threshold %v", floor, threshold)
	}
	for name, tpl := range map[string]string{
		"recyclable":     table.Recyclable,
		"non_recyclable": table.NonRecyclable,
		"organic":        table.Organic,
		"unknown":        table.Unknown,
		"generic":        table.Generic,
		"fallback":       table.Fallback,
	} {
		if tpl == "" {
			return nil, fmt.Errorf("recommendation template %q is empty", name)
		}
	}
	return &Pipeline{mapper: mapper, threshold: threshold, floor: floor, table: table}, nil
}

// Normalize converts a provider's raw prediction list into a uniform shape:
// entries with out-of-range or non-finite probabilities are dropped,
// duplicate tags collapse to the highest-probability entry, and the output is
// sorted by probability descending with ties broken by tag ascending.
func Normalize(raw []classifier.RawPrediction) []classifier.RawPrediction {
	best := make(map[string]classifier.RawPrediction, len(raw))
	for _, pred := range raw {
		if math.IsNaN(pred.Probability) || math.IsInf(pred.Probability, 0) {
			continue
		}
		if pred.Probability < 0 || pred.Probability > 1 {
			continue
		}
		tag := taxonomy.CanonicalTag(pred.Tag)
		if tag == "" {
			continue
		}
		if current, ok := best[tag]; !ok || pred.Probability > current.Probability {
			best[tag] = classifier.RawPrediction{Tag: tag, Probability: pred.Probability}
		}
	}

	normalized := make([]classifier.RawPrediction, 0, len(best))
	for _, pred := range best {
		normalized = append(normalized, pred)
	}
	sort.Slice(normalized, func(i, j int) bool {
		if normalized[i].Probability != normalized[j].Probability {
			return normalized[i].Probability > normalized[j].Probability
		}
		return normalized[i].Tag < normalized[j].Tag
	})
	return normalized
}

// Select applies the two-tier confidence policy: every prediction at or above
// the strict threshold is taken; when nothing qualifies, the single top
// prediction is promoted iff it clears the weak-signal floor. An empty return
// means "no confident detections" and must stay possible, so the weak pick
// never applies below the floor.
func (p *Pipeline) Select(normalized []classifier.RawPrediction) []Detection {
	detections := make([]Detection, 0, len(normalized))
	for _, pred := range normalized {
		if pred.Probability >= p.threshold {
			detections = append(detections, p.detect(pred))
		}
	}
	if len(detections) > 0 {
		return detections
	}
	if len(normalized) > 0 && normalized[0].Probability >= p.floor {
		return []Detection{p.detect(normalized[0])}
	}
	return detections
}

func (p *Pipeline) detect(pred classifier.RawPrediction) Detection {
	label := p.mapper.Map(pred.Tag)
	return Detection{
		Type:       taxonomy.CanonicalTag(pred.Tag),
		Confidence: pred.Probability,
		Recyclable: label == taxonomy.LabelRecyclable,
	}
}

// Recommend emits exactly one guidance string per detection, in input order.
// With no detections it emits a single generic guidance string; the product
// never shows an empty recommendation list.
func (p *Pipeline) Recommend(detections []Detection) []string {
	if len(detections) == 0 {
		return []string{p.table.Generic}
	}
	recommendations := make([]string, 0, len(detections))
	for _, det := range detections {
		recommendations = append(recommendations, p.recommendOne(det))
	}
	return recommendations
}

func (p *Pipeline) recommendOne(det Detection) string {
	switch {
	case det.Recyclable:
		return fmt.Sprintf(p.table.Recyclable, det.Type)
	case p.isOrganic(det.Type):
		return fmt.Sprintf(p.table.Organic, det.Type)
	case p.mapper.Map(det.Type) == taxonomy.LabelUnknown:
		return fmt.Sprintf(p.table.Unknown, det.Type)
	default:
		return fmt.Sprintf(p.table.NonRecyclable, det.Type)
	}
}

func (p *Pipeline) isOrganic(itemType string) bool {
	_, ok := p.table.OrganicTypes[taxonomy.CanonicalTag(itemType)]
	return ok
}

// Assemble runs the full pipeline for one request. When callErr is non-nil
// the external classifier produced nothing usable and the result degrades to
// the fallback path; the assembler itself never fails.
func (p *Pipeline) Assemble(raw []classifier.RawPrediction, callErr error) Result {
	if callErr != nil {
		reason := classifier.FailureReason(callErr)
		return Result{
			DetectedItems:   []Detection{},
			Recommendations: []string{p.table.Fallback},
			Source:          SourceFallback,
			Error:           &reason,
		}
	}

	detections := p.Select(Normalize(raw))
	return Result{
		DetectedItems:   detections,
		Recommendations: p.Recommend(detections),
		Source:          SourcePrimary,
		Error:           nil,
	}
}
