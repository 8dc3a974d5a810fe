/*
DESCRIPTION
  config.go contains the configuration record for an integration run. A
  Config is a plain value passed into the engine constructor; the engine
  holds no process-wide mutable state other than the on-disk cache. The
  Variables table in variables.go drives Validate and Update in the same
  manner as the revid configuration layer.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package integrate implements streaming pixel integration of co-registered
// astronomical frames with statistical outlier rejection.
package integrate

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/astro/image"
	"github.com/ausocean/astro/stats"
)

// Combination selects the reduction applied to the surviving samples of a
// pixel stack.
type Combination int

const (
	CombineMean Combination = iota
	CombineMedian
	CombineMin
	CombineMax
)

// String returns the combination name used in reports.
func (c Combination) String() string {
	switch c {
	case CombineMean:
		return "mean"
	case CombineMedian:
		return "median"
	case CombineMin:
		return "minimum"
	case CombineMax:
		return "maximum"
	}
	return "unknown"
}

// Rejection selects the statistical rejection algorithm.
type Rejection int

const (
	RejectNone Rejection = iota
	RejectMinMax
	RejectPercentile
	RejectSigma
	RejectWinsorizedSigma
	RejectAveragedSigma
	RejectLinearFit
	RejectCCDNoise
	RejectESD
	RejectRCR
)

// String returns the algorithm name used in reports.
func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectMinMax:
		return "min/max"
	case RejectPercentile:
		return "percentile clipping"
	case RejectSigma:
		return "sigma clipping"
	case RejectWinsorizedSigma:
		return "Winsorized sigma clipping"
	case RejectAveragedSigma:
		return "averaged sigma clipping"
	case RejectLinearFit:
		return "linear fit clipping"
	case RejectCCDNoise:
		return "CCD noise model"
	case RejectESD:
		return "generalized ESD"
	case RejectRCR:
		return "robust Chauvenet"
	}
	return "unknown"
}

// Normalization selects a normalization regime. The rejection and output
// stages are parameterized independently.
type Normalization int

const (
	NormNone Normalization = iota
	NormAdditive
	NormMultiplicative
	NormAdditiveScaling
	NormMultiplicativeScaling
	NormLocal
	NormAdaptive
)

// String returns the regime name used in reports.
func (n Normalization) String() string {
	switch n {
	case NormNone:
		return "none"
	case NormAdditive:
		return "additive"
	case NormMultiplicative:
		return "multiplicative"
	case NormAdditiveScaling:
		return "additive + scaling"
	case NormMultiplicativeScaling:
		return "multiplicative + scaling"
	case NormLocal:
		return "local"
	case NormAdaptive:
		return "adaptive"
	}
	return "unknown"
}

// WeightMode selects how per-frame weights are derived.
type WeightMode int

const (
	WeightConstant WeightMode = iota
	WeightExposure
	WeightInverseNoise
	WeightSignal
	WeightMedian
	WeightMean
	WeightKeyword
	WeightPSFSignal
	WeightPSFSNR
	WeightPSFScaleSNR
)

// String returns the mode name used in reports.
func (w WeightMode) String() string {
	switch w {
	case WeightConstant:
		return "constant"
	case WeightExposure:
		return "exposure time"
	case WeightInverseNoise:
		return "inverse noise variance"
	case WeightSignal:
		return "signal strength"
	case WeightMedian:
		return "median"
	case WeightMean:
		return "mean"
	case WeightKeyword:
		return "keyword"
	case WeightPSFSignal:
		return "PSF signal"
	case WeightPSFSNR:
		return "PSF SNR"
	case WeightPSFScaleSNR:
		return "PSF scale SNR"
	}
	return "unknown"
}

// ROI is a rectangular region of interest in pixel coordinates,
// [X0,X1) x [Y0,Y1).
type ROI struct {
	X0, Y0, X1, Y1 int
}

// Empty reports whether the rectangle has no area.
func (r ROI) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Opener opens an image path as a Source. The default opens the flat raw
// format from the image package.
type Opener func(path string) (image.Source, error)

// Config provides the parameters of an integration run. A Config must be
// validated before use; Validate defaults unset fields.
type Config struct {
	// Combination is the reduction of surviving samples.
	Combination Combination

	// Rejection selects the statistical rejection algorithm, and
	// RejectionNormalization/OutputNormalization the normalization regimes
	// of the rejection and output stages.
	Rejection               Rejection
	RejectionNormalization  Normalization
	OutputNormalization     Normalization

	// Weighting.
	WeightMode    WeightMode
	WeightKeyword string  // header name for WeightKeyword mode
	WeightScale   stats.ScaleEstimator
	MinWeight     float64   // weight floor
	CSVWeights    []float64 // explicit per-frame weights; overrides WeightMode

	// Adaptive normalization.
	AdaptiveGridSize int
	AdaptiveNoScale  bool

	// Noise estimation.
	IgnoreNoiseKeywords bool
	NoiseEstimator      stats.NoiseEstimator
	MRSMinDataFraction  float64

	// Rejection parameters.
	MinMaxLow, MinMaxHigh       int
	PercentileLow, PercentileHigh float64
	SigmaLow, SigmaHigh         float64
	WinsorizationCutoff         float64
	LinearFitLow, LinearFitHigh float64
	ESDOutliersFraction         float64
	ESDAlpha                    float64
	ESDLowRelaxation            float64
	RCRLimit                    float64
	CCDGain                     float64
	CCDReadNoise                float64
	CCDScaleNoise               float64

	// Clipping switches.
	ClipLow, ClipHigh bool

	// Range rejection.
	RangeClipLow         bool
	RangeLow             float64
	RangeClipHigh        bool
	RangeHigh            float64
	ReportRangeRejection bool
	MapRangeRejection    bool

	// Large-scale rejection.
	LargeScaleClipLow            bool
	LargeScaleLowProtectedLayers int
	LargeScaleLowGrowth          int
	LargeScaleClipHigh            bool
	LargeScaleHighProtectedLayers int
	LargeScaleHighGrowth          int

	// Outputs.
	Generate64BitResult     bool
	GenerateRejectionMaps   bool
	GenerateIntegratedImage bool
	GenerateDrizzleData     bool
	TruncateOnOutOfRange    bool
	EvaluateNoise           bool

	// Memory budgets.
	BufferSizeMB    int
	StackSizeMB     int
	AutoMemorySize  bool
	AutoMemoryLimit float64

	// Region of interest.
	UseROI bool
	ROI    ROI

	// Cache.
	UseCache bool
	CacheDir string

	// Input handling.
	SubtractPedestals bool
	Opener            Opener

	// Parallelism. FileThreads bounds per-band stack workers; BufferThreads
	// bounds concurrent row-buffer refills across frames.
	FileThreads   int
	BufferThreads int

	// Logger must be set for the engine to run; LogLevel is applied to it
	// on validation.
	Logger   logging.Logger
	LogLevel int8
}
