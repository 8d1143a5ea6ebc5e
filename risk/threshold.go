package risk

import (
	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
)

// DefaultThreshold is used when neither the on-chain registry nor the
// static dataset has an entry for the pair.
const DefaultThreshold = 0.9

const bpsDenom = 10000

// ThresholdFunc resolves the pairwise liquidation threshold for a
// deposit asset against a borrow asset. Asymmetric: the two directions
// of a pair can differ.
type ThresholdFunc func(deposit, borrow *assets.Asset) float64

// Lookup resolves liquidation thresholds. The on-chain risk registry is
// the primary source, the static per-asset dataset is the fallback, and
// a pair absent from both resolves to DefaultThreshold. It never fails:
// absence of data is not an error here.
type Lookup struct {
	logger logging.Logger

	// registry may be nil when the on-chain source is unavailable;
	// lookups then fall through to the static dataset transparently.
	registry *chain.RiskRegistry

	// indexByMint joins canonical mint addresses to registry indices.
	// Registry indices and CMC ids are distinct spaces and never mix.
	indexByMint map[string]uint16
}

// NewLookup returns a threshold lookup over the given sources.
func NewLookup(logger logging.Logger, registry *chain.RiskRegistry, indexByMint map[string]uint16) *Lookup {
	return &Lookup{
		logger:      logger,
		registry:    registry,
		indexByMint: indexByMint,
	}
}

// ThresholdOf returns the liquidation threshold ratio in (0, 1] for
// borrowing borrow against deposit collateral.
func (l *Lookup) ThresholdOf(deposit, borrow *assets.Asset) float64 {
	if bps, ok := l.registryBps(deposit.Mint, borrow.Mint); ok {
		return float64(bps) / bpsDenom
	}
	if lt, ok := deposit.Threshold(borrow.CmcID); ok {
		l.logger.Debug("threshold fallback to static dataset for %s/%s", deposit.Symbol, borrow.Symbol)
		return lt
	}
	return DefaultThreshold
}

// Func adapts the lookup to a ThresholdFunc.
func (l *Lookup) Func() ThresholdFunc {
	return l.ThresholdOf
}

// registryBps reads the dense row-major matrix cell for the pair.
// Out-of-bounds indices and zero cells count as not found.
func (l *Lookup) registryBps(depositMint, borrowMint string) (uint16, bool) {
	if l.registry == nil || l.indexByMint == nil {
		return 0, false
	}
	depositIdx, ok := l.indexByMint[depositMint]
	if !ok {
		return 0, false
	}
	borrowIdx, ok := l.indexByMint[borrowMint]
	if !ok {
		return 0, false
	}
	dim := l.registry.Dim
	if depositIdx >= dim || borrowIdx >= dim {
		l.logger.Warn("risk pair index out of bounds: deposit=%d, borrow=%d, dim=%d",
			depositIdx, borrowIdx, dim)
		return 0, false
	}
	pairIdx := int(depositIdx)*int(dim) + int(borrowIdx)
	if pairIdx >= len(l.registry.Pairs) {
		l.logger.Warn("risk pair index out of bounds: %d >= %d", pairIdx, len(l.registry.Pairs))
		return 0, false
	}
	bps := l.registry.Pairs[pairIdx].LiqThresholdBps
	if bps == 0 {
		// unconfigured cell, fall through to the static dataset
		return 0, false
	}
	return bps, true
}
