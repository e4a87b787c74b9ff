package provenance

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/provenance-cli/internal/model"
)

// Fixed confidences.
const (
	AuctionConfidence = 100
	ManualConfidence  = 50
)

// ManualLabel is the source label of a value with no evidence behind it.
const ManualLabel = "Manual entry (no evidence)"

// Rules holds the tunable parts of source selection: display labels per
// evidence source type and the confidence given to timeline fallbacks.
type Rules struct {
	TimelineConfidence int                         `yaml:"timeline_confidence"`
	Labels             map[model.SourceType]string `yaml:"labels"`
}

var defaultLabels = map[model.SourceType]string{
	model.SourceUserInput:         "User input",
	model.SourceUserInputVerified: "Verified by owner",
	model.SourceReceipt:           "Receipt",
	model.SourceBillOfSale:        "Bill of sale",
	model.SourceTitleDocument:     "Title document",
	model.SourceAppraisal:         "Professional appraisal",
	model.SourceAuctionResult:     "Auction result",
	model.SourceMarketplace:       "Marketplace listing",
	model.SourceDocumentScan:      "Scanned document",
	model.SourceAIExtraction:      "AI extraction",
	model.SourceValuationModel:    "Valuation model",
	model.SourceDealerQuote:       "Dealer quote",
}

// DefaultRules returns the built-in rules.
func DefaultRules() *Rules {
	labels := make(map[model.SourceType]string, len(defaultLabels))
	for k, v := range defaultLabels {
		labels[k] = v
	}
	return &Rules{TimelineConfidence: 60, Labels: labels}
}

// LoadRules reads rules from a YAML file with a top-level "provenance" key.
// Values in the file override the defaults; labels are merged per source type.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provenance: read rules %s", path)
	}

	var wrapper struct {
		Provenance Rules `yaml:"provenance"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "provenance: parse rules")
	}

	rules := DefaultRules()
	if c := wrapper.Provenance.TimelineConfidence; c != 0 {
		if c < 0 || c > 100 {
			return nil, eris.Errorf("provenance: timeline_confidence %d out of range", c)
		}
		rules.TimelineConfidence = c
	}
	for k, v := range wrapper.Provenance.Labels {
		if strings.TrimSpace(v) != "" {
			rules.Labels[k] = v
		}
	}
	return rules, nil
}

// Label returns the display label for an evidence source type. Unmapped
// types are title-cased from their code.
func (r *Rules) Label(st model.SourceType) string {
	if l, ok := r.Labels[st]; ok {
		return l
	}
	if st == "" {
		return "Unknown source"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(st), "_", " "))
}

// withLot appends the lot suffix unless the label already carries one.
func withLot(label, lot string) string {
	if lot == "" || strings.Contains(label, "Lot #") {
		return label
	}
	return label + " (Lot #" + lot + ")"
}
