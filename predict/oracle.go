package predict

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/xerr"
)

// oracleRecord is the shape the external oracle publishes, grounded on
// the original sources' write_json()/congestion.json helper
// (original_source/QOS/CrossLayer/zmqSender/sender.c): file sizes and
// link bandwidth for context, plus the rate estimate itself.
type oracleRecord struct {
	FileSizes     []int64 `json:"file_sizes"`
	LinkBandwidth float64 `json:"link_bandwidth"`
	Congestion    float64 `json:"congestion"`
	RateMbps      float64 `json:"rate_mbps"`
}

var oracleJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// OracleFilePredictor implements the "alternate predictor" variant from
// spec §4.3: reads a single rate estimate (rate_mbps) from a JSON file
// published by an external process, rather than deriving it from
// telemetry itself; no time series is read. Steps 6-8 (threshold
// derivation) are unchanged from the spectral strategy.
type OracleFilePredictor struct {
	Path string
}

func (o OracleFilePredictor) Predict(hub *telemetry.Hub, stepAug, lookahead int, linkBandwidthMbps float64) error {
	buf, err := os.ReadFile(o.Path)
	if err != nil {
		return xerr.Wrap(xerr.KindPredictorUnavailable, err, "read oracle file %s", o.Path)
	}
	var rec oracleRecord
	if err := oracleJSON.Unmarshal(buf, &rec); err != nil {
		return xerr.Wrap(xerr.KindPredictorUnavailable, err, "parse oracle file %s", o.Path)
	}
	if rec.RateMbps <= 0 {
		return xerr.New(xerr.KindPredictorUnavailable, "oracle file %s has no positive rate_mbps", o.Path)
	}

	// DrainAugSamples is still called so the ring doesn't grow stale
	// between cycles even though this strategy ignores its contents.
	hub.DrainAugSamples()

	applyThreshold(hub, stepAug, lookahead, rec.RateMbps, linkBandwidthMbps)
	return nil
}
