package match

import (
	"context"
	"fmt"
	"runtime"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leed-ll97/internal/debug"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/similarity"
)

type options struct {
	logger       zerolog.Logger
	scorer       Scorer
	customScorer bool
	debug        bool
	workers      int
}

// Option customizes a Cascade or a pipeline Run.
type Option func(*options)

// WithLogger sets the logger for warnings and run summaries.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithScorer replaces the token-sort ratio used by the fuzzy tiers. The
// scorer is called with both normalized values already token sorted
// (similarity.TokenSort), so it sees "1 BROADWAY" and never "BROADWAY 1".
// Length pruning is disabled for custom scorers.
func WithScorer(s Scorer) Option {
	return func(o *options) {
		o.scorer = s
		o.customScorer = s != nil
	}
}

// WithDebug traces every tier evaluation at debug level.
func WithDebug(enabled bool) Option {
	return func(o *options) { o.debug = enabled }
}

// WithWorkers bounds the parallel cascade. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.WithComponent("match"), scorer: DefaultScorer}
	for _, fn := range opts {
		fn(&o)
	}
	if o.scorer == nil {
		o.scorer = DefaultScorer
	}
	return o
}

// Cascade evaluates the matching tiers for source records against a fixed
// candidate set. It is safe for concurrent use.
type Cascade struct {
	cfg   Config
	idx   *candidateIndex
	opts  options
	prune bool
}

// NewCascade indexes candidates for matching under cfg. Call cfg.Validate
// first; NewCascade does not.
func NewCascade(candidates []CandidateRecord, cfg Config, opts ...Option) *Cascade {
	o := buildOptions(opts)
	return &Cascade{
		cfg:  cfg,
		idx:  newCandidateIndex(candidates),
		opts: o,
		// Length pruning is only sound for the built-in ratio.
		prune: !o.customScorer,
	}
}

// MatchOne returns the decision of the first satisfied tier for src.
func (c *Cascade) MatchOne(src SourceRecord) MatchDecision {
	return c.matchOne(c.opts.debug, src)
}

func (c *Cascade) matchOne(localDebug bool, src SourceRecord) MatchDecision {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)
	debug.DebugOutput(localDebug, "Source %s: bbl=%q bin=%q addr=%q zip=%q", src.ID, src.ParcelID, src.BuildingID, src.AddressNorm, src.ZIP)

	if d, ok := c.matchParcel(localDebug, src); ok {
		return d
	}
	if d, ok := c.matchBuilding(localDebug, src); ok {
		return d
	}
	if d, ok := c.matchExactAddress(localDebug, src); ok {
		return d
	}
	if c.cfg.AddressOnlyTier {
		if d, ok := c.matchAddressOnly(localDebug, src); ok {
			return d
		}
	}
	if d, ok := c.matchFuzzyAddress(localDebug, src); ok {
		return d
	}
	if d, ok := c.matchFuzzyName(localDebug, src); ok {
		return d
	}

	debug.DebugOutput(localDebug, "No tier matched")
	return noMatch(src.ID, "no match found")
}

func (c *Cascade) matchParcel(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.ParcelID == "" {
		return MatchDecision{}, false
	}
	hits := c.idx.byParcel[src.ParcelID]
	if len(hits) == 0 {
		return MatchDecision{}, false
	}

	// Several buildings can share a parcel; prefer the one with the same BIN.
	pick := hits[0]
	if src.BuildingID != "" {
		for _, p := range hits {
			if c.idx.all[p].rec.BuildingID == src.BuildingID {
				pick = p
				break
			}
		}
	}
	cand := c.idx.all[pick].rec
	notes := "bbl=" + src.ParcelID
	if len(hits) > 1 {
		notes += fmt.Sprintf("; %d candidates share parcel", len(hits))
	}
	debug.DebugOutput(localDebug, "Parcel match -> %s (%d hits)", cand.ID, len(hits))
	return MatchDecision{SourceID: src.ID, CandidateID: cand.ID, Confidence: 100, Method: MethodParcelID, Notes: notes}, true
}

func (c *Cascade) matchBuilding(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.BuildingID == "" {
		return MatchDecision{}, false
	}
	hits := c.idx.byBuilding[src.BuildingID]
	if len(hits) == 0 {
		return MatchDecision{}, false
	}
	cand := c.idx.all[hits[0]].rec
	debug.DebugOutput(localDebug, "Building match -> %s", cand.ID)
	return MatchDecision{SourceID: src.ID, CandidateID: cand.ID, Confidence: 100, Method: MethodBuildingID, Notes: "bin=" + src.BuildingID}, true
}

func (c *Cascade) matchExactAddress(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.AddressNorm == "" || src.ZIP == "" {
		return MatchDecision{}, false
	}
	for _, p := range c.idx.byAddress[src.AddressNorm] {
		cand := c.idx.all[p].rec
		if cand.ZIP == src.ZIP {
			debug.DebugOutput(localDebug, "Exact address+zip match -> %s", cand.ID)
			return MatchDecision{SourceID: src.ID, CandidateID: cand.ID, Confidence: 90, Method: MethodExactAddress, Notes: "address+zip exact"}, true
		}
	}
	return MatchDecision{}, false
}

// matchAddressOnly accepts an exact address whose ZIP differs or is missing
// on either side. Tier 3 has already rejected every same-ZIP pairing.
func (c *Cascade) matchAddressOnly(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.AddressNorm == "" {
		return MatchDecision{}, false
	}
	hits := c.idx.byAddress[src.AddressNorm]
	if len(hits) == 0 {
		return MatchDecision{}, false
	}
	cand := c.idx.all[hits[0]].rec
	debug.DebugOutput(localDebug, "Exact address (no zip) match -> %s", cand.ID)
	notes := fmt.Sprintf("address exact, zip %q vs %q", src.ZIP, cand.ZIP)
	return MatchDecision{SourceID: src.ID, CandidateID: cand.ID, Confidence: 85, Method: MethodAddressNoZIP, Notes: notes}, true
}

func (c *Cascade) matchFuzzyAddress(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.AddressNorm == "" {
		return MatchDecision{}, false
	}
	var pool []int
	restricted := c.cfg.FuzzyAddressSameZIP && src.ZIP != ""
	if restricted {
		pool = c.idx.byZIP[src.ZIP]
	}
	best, score := c.bestFuzzy(similarity.TokenSort(src.AddressNorm), c.cfg.AddressThreshold, pool, restricted,
		func(ic *indexedCandidate) (string, int) { return ic.addrSorted, ic.addrLen })
	debug.DebugOutput(localDebug, "Fuzzy address best=%d score=%d threshold=%d", best, score, c.cfg.AddressThreshold)
	if best < 0 {
		return MatchDecision{}, false
	}
	cand := c.idx.all[best].rec
	notes := fmt.Sprintf("address score=%d jw=%d", score, similarity.JaroWinkler(src.AddressNorm, cand.AddressNorm))
	return MatchDecision{
		SourceID:    src.ID,
		CandidateID: cand.ID,
		Confidence:  AddressConfidence(score, c.cfg.AddressThreshold),
		Method:      MethodFuzzyAddress,
		Notes:       notes,
	}, true
}

func (c *Cascade) matchFuzzyName(localDebug bool, src SourceRecord) (MatchDecision, bool) {
	if src.BuildingName == "" || (src.ZIP == "" && src.Borough == "") {
		return MatchDecision{}, false
	}
	pool := union(c.idx.byZIP[src.ZIP], c.idx.byBorough[src.Borough])
	best, score := c.bestFuzzy(similarity.TokenSort(src.BuildingName), c.cfg.NameThreshold, pool, true,
		func(ic *indexedCandidate) (string, int) { return ic.nameSorted, ic.nameLen })
	debug.DebugOutput(localDebug, "Fuzzy name best=%d score=%d pool=%d threshold=%d", best, score, len(pool), c.cfg.NameThreshold)
	if best < 0 {
		return MatchDecision{}, false
	}
	cand := c.idx.all[best].rec
	return MatchDecision{
		SourceID:    src.ID,
		CandidateID: cand.ID,
		Confidence:  NameConfidence(score, c.cfg.NameThreshold),
		Method:      MethodFuzzyName,
		Notes:       fmt.Sprintf("name score=%d", score),
	}, true
}

// bestFuzzy returns the position and score of the highest scoring
// candidate at or above threshold, or -1. Positions are visited in ID order
// and only a strictly better score replaces the current best, which makes
// ties go to the lowest candidate ID.
func (c *Cascade) bestFuzzy(query string, threshold int, pool []int, restricted bool,
	field func(*indexedCandidate) (string, int)) (int, int) {
	qLen := utf8.RuneCountInString(query)
	best, bestScore := -1, -1

	visit := func(p int) {
		ic := &c.idx.all[p]
		val, n := field(ic)
		if n == 0 {
			return
		}
		if c.prune {
			if bound := maxRatio(qLen, n); bound < threshold || bound <= bestScore {
				return
			}
		}
		s := c.opts.scorer(query, val)
		if s >= threshold && s > bestScore {
			best, bestScore = p, s
		}
	}

	if restricted {
		for _, p := range pool {
			visit(p)
		}
	} else {
		for p := range c.idx.all {
			visit(p)
		}
	}
	return best, bestScore
}

// MatchAll runs MatchOne over sources on up to workers goroutines. The
// result is index-aligned with sources and identical to a sequential run.
func (c *Cascade) MatchAll(ctx context.Context, sources []SourceRecord, workers int) ([]MatchDecision, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]MatchDecision, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = c.matchOne(c.opts.debug, sources[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cascade: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cascade: %w", err)
	}
	return out, nil
}
