package testutil

import (
	"time"

	"trackreg/internal/runs/domain"
)

// WithLedgerScenario seeds the shape of the original hand-maintained
// ledger: two completed doublets and a triplet consuming the second.
//
//	1  doublet  small  agnn00  (completed)
//	2  doublet  med    agnn01  (completed)
//	3  triplet  med    t01     (upstream 2, still running)
func (b *Builder) WithLedgerScenario() *Builder {
	return b.
		WithDoublet("/doublet_results/agnn00",
			Size(domain.SizeSmall), Graphs(20000),
			Completed(2*time.Hour+15*time.Minute),
			Dataset("/doublet_data/hitgraphs_small")).
		WithDoublet("/doublet_results/agnn01",
			Size(domain.SizeMedium), Graphs(80000),
			Completed(6*time.Hour+30*time.Minute)).
		WithTriplet("/triplet_results/t01",
			Size(domain.SizeMedium), Upstream(2),
			Notes("seeded from agnn01 epoch 60"))
}

// WithStageSpread seeds one run per stage and size class combination,
// result paths derived from the pair. Nothing is linked or completed, so
// filter tests see a clean grid.
func (b *Builder) WithStageSpread() *Builder {
	for _, size := range []domain.SizeClass{domain.SizeSmall, domain.SizeMedium, domain.SizeLarge} {
		b.WithDoublet("/doublet_results/spread_"+size.String(), Size(size))
		b.WithTriplet("/triplet_results/spread_"+size.String(), Size(size))
	}
	return b
}
