package feature

import (
	"fmt"
	"log/slog"

	"github.com/veenone/modem-inspector/modem"
	"github.com/veenone/modem-inspector/plugin"
)

// Extractor orchestrates the universal parser and the vendor dispatcher
// over a batch of responses and merges their outputs under the
// confidence policy. Extraction is pure computation over the collected
// responses: it is safe to run on any goroutine and re-running it over
// the same batch yields an equal FeatureSet.
type Extractor struct {
	universal *Universal
	vendor    *VendorDispatcher
	logger    *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		universal: NewUniversal(),
		vendor:    NewVendorDispatcher(logger),
		logger:    logger,
	}
}

// Dispatcher exposes the vendor dispatcher so callers can register
// additional custom extractors before extraction.
func (x *Extractor) Dispatcher() *VendorDispatcher {
	return x.vendor
}

// Extract runs the full pipeline: universal rules first, vendor parsers
// second, then a per-path merge where higher confidence wins and vendor
// sources win ties. The returned set is complete; every known path is
// populated, with sentinels at confidence zero where nothing matched.
func (x *Extractor) Extract(responses map[string]modem.CommandResponse, p *plugin.Plugin) *FeatureSet {
	var errs []string

	universal := x.runUniversal(responses, &errs)
	vendor, vendorErrs := x.vendor.Parse(responses, p)
	errs = append(errs, vendorErrs...)

	merged := Merge(universal, vendor)
	fs := assemble(merged, errs)

	x.logger.Debug("feature extraction complete",
		"features", len(merged),
		"errors", len(errs),
		"aggregate_confidence", fs.AggregateConfidence)

	return fs
}

// runUniversal shields the pipeline from faults in the fixed rule
// table the same way the dispatcher shields it from plugin parsers.
func (x *Extractor) runUniversal(responses map[string]modem.CommandResponse, errs *[]string) (features map[string]Feature) {
	defer func() {
		if r := recover(); r != nil {
			features = map[string]Feature{}
			*errs = append(*errs, fmt.Sprintf("universal parser: panic: %v", r))
			x.logger.Warn("universal parser degraded to miss", "error", r)
		}
	}()
	return x.universal.Parse(responses)
}
