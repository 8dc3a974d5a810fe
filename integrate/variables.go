/*
DESCRIPTION
  variables.go lists the run variables: each entry gives the variable name,
  a type hint, a function for updating the corresponding Config field from
  a string, and a validation function applied by Config.Validate. Defaults
  follow the reference process parameters.

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

package integrate

import (
	"strconv"
	"strings"

	"github.com/ausocean/astro/image"
	"github.com/ausocean/astro/stats"
)

// Config variable names.
const (
	KeyCombination            = "Combination"
	KeyRejection              = "Rejection"
	KeyRejectionNormalization = "RejectionNormalization"
	KeyOutputNormalization    = "OutputNormalization"
	KeyWeightMode             = "WeightMode"
	KeyWeightKeyword          = "WeightKeyword"
	KeyWeightScale            = "WeightScale"
	KeyMinWeight              = "MinWeight"
	KeyCSVWeights             = "CSVWeights"
	KeyAdaptiveGridSize       = "AdaptiveGridSize"
	KeyAdaptiveNoScale        = "AdaptiveNoScale"
	KeyIgnoreNoiseKeywords    = "IgnoreNoiseKeywords"
	KeyNoiseEstimator         = "NoiseEstimator"
	KeyMRSMinDataFraction     = "MRSMinDataFraction"
	KeyMinMaxLow              = "MinMaxLow"
	KeyMinMaxHigh             = "MinMaxHigh"
	KeyPercentileLow          = "PercentileLow"
	KeyPercentileHigh         = "PercentileHigh"
	KeySigmaLow               = "SigmaLow"
	KeySigmaHigh              = "SigmaHigh"
	KeyWinsorizationCutoff    = "WinsorizationCutoff"
	KeyLinearFitLow           = "LinearFitLow"
	KeyLinearFitHigh          = "LinearFitHigh"
	KeyESDOutliersFraction    = "ESDOutliersFraction"
	KeyESDAlpha               = "ESDAlpha"
	KeyESDLowRelaxation       = "ESDLowRelaxation"
	KeyRCRLimit               = "RCRLimit"
	KeyCCDGain                = "CCDGain"
	KeyCCDReadNoise           = "CCDReadNoise"
	KeyCCDScaleNoise          = "CCDScaleNoise"
	KeyClipLow                = "ClipLow"
	KeyClipHigh               = "ClipHigh"
	KeyRangeClipLow           = "RangeClipLow"
	KeyRangeLow               = "RangeLow"
	KeyRangeClipHigh          = "RangeClipHigh"
	KeyRangeHigh              = "RangeHigh"
	KeyReportRangeRejection   = "ReportRangeRejection"
	KeyMapRangeRejection      = "MapRangeRejection"
	KeyLargeScaleClipLow      = "LargeScaleClipLow"
	KeyLargeScaleLowLayers    = "LargeScaleLowProtectedLayers"
	KeyLargeScaleLowGrowth    = "LargeScaleLowGrowth"
	KeyLargeScaleClipHigh     = "LargeScaleClipHigh"
	KeyLargeScaleHighLayers   = "LargeScaleHighProtectedLayers"
	KeyLargeScaleHighGrowth   = "LargeScaleHighGrowth"
	KeyGenerate64BitResult    = "Generate64BitResult"
	KeyGenerateRejectionMaps  = "GenerateRejectionMaps"
	KeyGenerateIntegrated     = "GenerateIntegratedImage"
	KeyGenerateDrizzleData    = "GenerateDrizzleData"
	KeyTruncateOnOutOfRange   = "TruncateOnOutOfRange"
	KeyEvaluateNoise          = "EvaluateNoise"
	KeyBufferSizeMB           = "BufferSizeMB"
	KeyStackSizeMB            = "StackSizeMB"
	KeyAutoMemorySize         = "AutoMemorySize"
	KeyAutoMemoryLimit        = "AutoMemoryLimit"
	KeyUseROI                 = "UseROI"
	KeyROI                    = "ROI"
	KeyUseCache               = "UseCache"
	KeyCacheDir               = "CacheDir"
	KeySubtractPedestals      = "SubtractPedestals"
	KeyFileThreads            = "FileThreads"
	KeyBufferThreads          = "BufferThreads"
)

// Variable type hints.
const (
	typeString = "string"
	typeInt    = "int"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultCombination         = CombineMean
	defaultRejection           = RejectNone
	defaultRejectionNorm       = NormAdditiveScaling
	defaultOutputNorm          = NormAdditiveScaling
	defaultWeightMode          = WeightConstant
	defaultWeightScale         = stats.ScaleBWMV
	defaultMinWeight           = 0.005
	defaultAdaptiveGridSize    = 16
	defaultNoiseEstimator      = stats.NoiseMRS
	defaultMRSMinDataFraction  = 0.01
	defaultMinMax              = 1
	defaultPercentileLow       = 0.2
	defaultPercentileHigh      = 0.1
	defaultSigmaLow            = 4.0
	defaultSigmaHigh           = 3.0
	defaultWinsorizationCutoff = 5.0
	defaultLinearFitLow        = 5.0
	defaultLinearFitHigh       = 4.0
	defaultESDOutliersFraction = 0.3
	defaultESDAlpha            = 0.05
	defaultESDLowRelaxation    = 1.0
	defaultRCRLimit            = 0.1
	defaultCCDGain             = 1.0
	defaultCCDReadNoise        = 10.0
	defaultCCDScaleNoise       = 0.0
	defaultRangeLow            = 0.0
	defaultRangeHigh           = 0.98
	defaultLargeScaleLayers    = 2
	defaultLargeScaleGrowth    = 2
	defaultBufferSizeMB        = 16
	defaultStackSizeMB         = 1024
	defaultAutoMemoryLimit     = 0.75
	defaultFileThreads         = 0 // 0 means NumCPU
)

// NewConfig returns a Config populated with the default values. The
// returned config still requires a Logger before use.
func NewConfig() Config {
	c := Config{
		Combination:             defaultCombination,
		Rejection:               defaultRejection,
		RejectionNormalization:  defaultRejectionNorm,
		OutputNormalization:     defaultOutputNorm,
		WeightMode:              defaultWeightMode,
		WeightScale:             defaultWeightScale,
		MinWeight:               defaultMinWeight,
		AdaptiveGridSize:        defaultAdaptiveGridSize,
		NoiseEstimator:          defaultNoiseEstimator,
		MRSMinDataFraction:      defaultMRSMinDataFraction,
		MinMaxLow:               defaultMinMax,
		MinMaxHigh:              defaultMinMax,
		PercentileLow:           defaultPercentileLow,
		PercentileHigh:          defaultPercentileHigh,
		SigmaLow:                defaultSigmaLow,
		SigmaHigh:               defaultSigmaHigh,
		WinsorizationCutoff:     defaultWinsorizationCutoff,
		LinearFitLow:            defaultLinearFitLow,
		LinearFitHigh:           defaultLinearFitHigh,
		ESDOutliersFraction:     defaultESDOutliersFraction,
		ESDAlpha:                defaultESDAlpha,
		ESDLowRelaxation:        defaultESDLowRelaxation,
		RCRLimit:                defaultRCRLimit,
		CCDGain:                 defaultCCDGain,
		CCDReadNoise:            defaultCCDReadNoise,
		CCDScaleNoise:           defaultCCDScaleNoise,
		ClipLow:                 true,
		ClipHigh:                true,
		RangeClipLow:            true,
		RangeLow:                defaultRangeLow,
		RangeClipHigh:           false,
		RangeHigh:               defaultRangeHigh,
		MapRangeRejection:       true,
		LargeScaleLowProtectedLayers:  defaultLargeScaleLayers,
		LargeScaleLowGrowth:           defaultLargeScaleGrowth,
		LargeScaleHighProtectedLayers: defaultLargeScaleLayers,
		LargeScaleHighGrowth:          defaultLargeScaleGrowth,
		GenerateRejectionMaps:   true,
		GenerateIntegratedImage: true,
		EvaluateNoise:           true,
		BufferSizeMB:            defaultBufferSizeMB,
		StackSizeMB:             defaultStackSizeMB,
		AutoMemorySize:          true,
		AutoMemoryLimit:         defaultAutoMemoryLimit,
		UseCache:                true,
	}
	return c
}

// Validate checks the config fields and defaults values that are unset or
// out of range, in the manner of the Variables table.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	if c.Opener == nil {
		c.Opener = func(path string) (image.Source, error) { return image.OpenRaw(path) }
	}
	if c.WeightMode == WeightKeyword && c.WeightKeyword == "" {
		return errf(ErrConfigInvalid, "validate", "weight mode keyword requires WeightKeyword")
	}
	if c.Logger != nil {
		c.Logger.SetLevel(c.LogLevel)
	}
	return nil
}

// Update takes a map of variable names to string values, parses them, and
// sets the corresponding Config fields.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs a bad or unset field that was defaulted.
func (c *Config) LogInvalidField(name string, def interface{}) {
	if c.Logger != nil {
		c.Logger.Info(name+" bad or unset, defaulting", name, def)
	}
}

func parseInt(name, v string, c *Config) int {
	n, err := strconv.Atoi(v)
	if err != nil && c.Logger != nil {
		c.Logger.Warning("invalid "+name+" param", "value", v)
	}
	return n
}

func parseFloat(name, v string, c *Config) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && c.Logger != nil {
		c.Logger.Warning("invalid "+name+" param", "value", v)
	}
	return f
}

func parseBool(name, v string, c *Config) bool {
	b, err := strconv.ParseBool(v)
	if err != nil && c.Logger != nil {
		c.Logger.Warning("invalid "+name+" param", "value", v)
	}
	return b
}

// Variables lists the run variables: name, type hint, update from string,
// and validation.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyCombination,
		Type:   "enum:mean,median,min,max",
		Update: func(c *Config, v string) { c.Combination = combinationByName(v, c) },
		Validate: func(c *Config) {
			if c.Combination < CombineMean || c.Combination > CombineMax {
				c.LogInvalidField(KeyCombination, defaultCombination)
				c.Combination = defaultCombination
			}
		},
	},
	{
		Name:   KeyRejection,
		Type:   "enum:none,minmax,percentile,sigma,winsorized_sigma,averaged_sigma,linear_fit,ccd_noise,esd,rcr",
		Update: func(c *Config, v string) { c.Rejection = rejectionByName(v, c) },
		Validate: func(c *Config) {
			if c.Rejection < RejectNone || c.Rejection > RejectRCR {
				c.LogInvalidField(KeyRejection, defaultRejection)
				c.Rejection = defaultRejection
			}
		},
	},
	{
		Name:   KeyRejectionNormalization,
		Type:   "enum:none,additive,multiplicative,additive_scaling,multiplicative_scaling,local,adaptive",
		Update: func(c *Config, v string) { c.RejectionNormalization = normalizationByName(v, c) },
		Validate: func(c *Config) {
			if c.RejectionNormalization < NormNone || c.RejectionNormalization > NormAdaptive {
				c.LogInvalidField(KeyRejectionNormalization, defaultRejectionNorm)
				c.RejectionNormalization = defaultRejectionNorm
			}
		},
	},
	{
		Name:   KeyOutputNormalization,
		Type:   "enum:none,additive,multiplicative,additive_scaling,multiplicative_scaling,local,adaptive",
		Update: func(c *Config, v string) { c.OutputNormalization = normalizationByName(v, c) },
		Validate: func(c *Config) {
			if c.OutputNormalization < NormNone || c.OutputNormalization > NormAdaptive {
				c.LogInvalidField(KeyOutputNormalization, defaultOutputNorm)
				c.OutputNormalization = defaultOutputNorm
			}
		},
	},
	{
		Name:   KeyWeightMode,
		Type:   "enum:constant,exposure,inverse_noise,signal,median,mean,keyword,psf_signal,psf_snr,psf_scale_snr",
		Update: func(c *Config, v string) { c.WeightMode = weightModeByName(v, c) },
		Validate: func(c *Config) {
			if c.WeightMode < WeightConstant || c.WeightMode > WeightPSFScaleSNR {
				c.LogInvalidField(KeyWeightMode, defaultWeightMode)
				c.WeightMode = defaultWeightMode
			}
		},
	},
	{
		Name:   KeyWeightKeyword,
		Type:   typeString,
		Update: func(c *Config, v string) { c.WeightKeyword = v },
	},
	{
		Name:   KeyWeightScale,
		Type:   "enum:avg_abs_dev,mad,biweight_midvariance",
		Update: func(c *Config, v string) { c.WeightScale = scaleEstimatorByName(v, c) },
	},
	{
		Name:   KeyMinWeight,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.MinWeight = parseFloat(KeyMinWeight, v, c) },
		Validate: func(c *Config) {
			if c.MinWeight < 0 || c.MinWeight > 1 {
				c.LogInvalidField(KeyMinWeight, defaultMinWeight)
				c.MinWeight = defaultMinWeight
			}
		},
	},
	{
		Name: KeyCSVWeights,
		Type: typeString,
		Update: func(c *Config, v string) {
			v = strings.Replace(v, " ", "", -1)
			if v == "" {
				c.CSVWeights = nil
				return
			}
			var ws []float64
			for _, e := range strings.Split(v, ",") {
				ws = append(ws, parseFloat(KeyCSVWeights, e, c))
			}
			c.CSVWeights = ws
		},
	},
	{
		Name:   KeyAdaptiveGridSize,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.AdaptiveGridSize = parseInt(KeyAdaptiveGridSize, v, c) },
		Validate: func(c *Config) {
			if c.AdaptiveGridSize < 1 || c.AdaptiveGridSize > 50 {
				c.LogInvalidField(KeyAdaptiveGridSize, defaultAdaptiveGridSize)
				c.AdaptiveGridSize = defaultAdaptiveGridSize
			}
		},
	},
	{
		Name:   KeyAdaptiveNoScale,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.AdaptiveNoScale = parseBool(KeyAdaptiveNoScale, v, c) },
	},
	{
		Name:   KeyIgnoreNoiseKeywords,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.IgnoreNoiseKeywords = parseBool(KeyIgnoreNoiseKeywords, v, c) },
	},
	{
		Name:   KeyNoiseEstimator,
		Type:   "enum:ksigma,mrs,nstar",
		Update: func(c *Config, v string) { c.NoiseEstimator = noiseEstimatorByName(v, c) },
	},
	{
		Name:   KeyMRSMinDataFraction,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.MRSMinDataFraction = parseFloat(KeyMRSMinDataFraction, v, c) },
		Validate: func(c *Config) {
			if c.MRSMinDataFraction <= 0 || c.MRSMinDataFraction > 1 {
				c.LogInvalidField(KeyMRSMinDataFraction, defaultMRSMinDataFraction)
				c.MRSMinDataFraction = defaultMRSMinDataFraction
			}
		},
	},
	{
		Name:   KeyMinMaxLow,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.MinMaxLow = parseInt(KeyMinMaxLow, v, c) },
		Validate: func(c *Config) {
			if c.MinMaxLow < 0 {
				c.LogInvalidField(KeyMinMaxLow, defaultMinMax)
				c.MinMaxLow = defaultMinMax
			}
		},
	},
	{
		Name:   KeyMinMaxHigh,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.MinMaxHigh = parseInt(KeyMinMaxHigh, v, c) },
		Validate: func(c *Config) {
			if c.MinMaxHigh < 0 {
				c.LogInvalidField(KeyMinMaxHigh, defaultMinMax)
				c.MinMaxHigh = defaultMinMax
			}
		},
	},
	{
		Name:   KeyPercentileLow,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.PercentileLow = parseFloat(KeyPercentileLow, v, c) },
		Validate: func(c *Config) {
			if c.PercentileLow < 0 || c.PercentileLow > 1 {
				c.LogInvalidField(KeyPercentileLow, defaultPercentileLow)
				c.PercentileLow = defaultPercentileLow
			}
		},
	},
	{
		Name:   KeyPercentileHigh,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.PercentileHigh = parseFloat(KeyPercentileHigh, v, c) },
		Validate: func(c *Config) {
			if c.PercentileHigh < 0 || c.PercentileHigh > 1 {
				c.LogInvalidField(KeyPercentileHigh, defaultPercentileHigh)
				c.PercentileHigh = defaultPercentileHigh
			}
		},
	},
	{
		Name:   KeySigmaLow,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.SigmaLow = parseFloat(KeySigmaLow, v, c) },
		Validate: func(c *Config) {
			if c.SigmaLow <= 0 || c.SigmaLow > 10 {
				c.LogInvalidField(KeySigmaLow, defaultSigmaLow)
				c.SigmaLow = defaultSigmaLow
			}
		},
	},
	{
		Name:   KeySigmaHigh,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.SigmaHigh = parseFloat(KeySigmaHigh, v, c) },
		Validate: func(c *Config) {
			if c.SigmaHigh <= 0 || c.SigmaHigh > 10 {
				c.LogInvalidField(KeySigmaHigh, defaultSigmaHigh)
				c.SigmaHigh = defaultSigmaHigh
			}
		},
	},
	{
		Name:   KeyWinsorizationCutoff,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.WinsorizationCutoff = parseFloat(KeyWinsorizationCutoff, v, c) },
		Validate: func(c *Config) {
			if c.WinsorizationCutoff < 3 || c.WinsorizationCutoff > 10 {
				c.LogInvalidField(KeyWinsorizationCutoff, defaultWinsorizationCutoff)
				c.WinsorizationCutoff = defaultWinsorizationCutoff
			}
		},
	},
	{
		Name:   KeyLinearFitLow,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LinearFitLow = parseFloat(KeyLinearFitLow, v, c) },
		Validate: func(c *Config) {
			if c.LinearFitLow <= 0 || c.LinearFitLow > 10 {
				c.LogInvalidField(KeyLinearFitLow, defaultLinearFitLow)
				c.LinearFitLow = defaultLinearFitLow
			}
		},
	},
	{
		Name:   KeyLinearFitHigh,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LinearFitHigh = parseFloat(KeyLinearFitHigh, v, c) },
		Validate: func(c *Config) {
			if c.LinearFitHigh <= 0 || c.LinearFitHigh > 10 {
				c.LogInvalidField(KeyLinearFitHigh, defaultLinearFitHigh)
				c.LinearFitHigh = defaultLinearFitHigh
			}
		},
	},
	{
		Name:   KeyESDOutliersFraction,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.ESDOutliersFraction = parseFloat(KeyESDOutliersFraction, v, c) },
		Validate: func(c *Config) {
			if c.ESDOutliersFraction < 0 || c.ESDOutliersFraction > 1 {
				c.LogInvalidField(KeyESDOutliersFraction, defaultESDOutliersFraction)
				c.ESDOutliersFraction = defaultESDOutliersFraction
			}
		},
	},
	{
		Name:   KeyESDAlpha,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.ESDAlpha = parseFloat(KeyESDAlpha, v, c) },
		Validate: func(c *Config) {
			if c.ESDAlpha <= 0 || c.ESDAlpha >= 1 {
				c.LogInvalidField(KeyESDAlpha, defaultESDAlpha)
				c.ESDAlpha = defaultESDAlpha
			}
		},
	},
	{
		Name:   KeyESDLowRelaxation,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.ESDLowRelaxation = parseFloat(KeyESDLowRelaxation, v, c) },
		Validate: func(c *Config) {
			if c.ESDLowRelaxation < 1 || c.ESDLowRelaxation > 5 {
				c.LogInvalidField(KeyESDLowRelaxation, defaultESDLowRelaxation)
				c.ESDLowRelaxation = defaultESDLowRelaxation
			}
		},
	},
	{
		Name:   KeyRCRLimit,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RCRLimit = parseFloat(KeyRCRLimit, v, c) },
		Validate: func(c *Config) {
			if c.RCRLimit <= 0 || c.RCRLimit >= 1 {
				c.LogInvalidField(KeyRCRLimit, defaultRCRLimit)
				c.RCRLimit = defaultRCRLimit
			}
		},
	},
	{
		Name:   KeyCCDGain,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CCDGain = parseFloat(KeyCCDGain, v, c) },
		Validate: func(c *Config) {
			if c.CCDGain <= 0 {
				c.LogInvalidField(KeyCCDGain, defaultCCDGain)
				c.CCDGain = defaultCCDGain
			}
		},
	},
	{
		Name:   KeyCCDReadNoise,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CCDReadNoise = parseFloat(KeyCCDReadNoise, v, c) },
		Validate: func(c *Config) {
			if c.CCDReadNoise < 0 {
				c.LogInvalidField(KeyCCDReadNoise, defaultCCDReadNoise)
				c.CCDReadNoise = defaultCCDReadNoise
			}
		},
	},
	{
		Name:   KeyCCDScaleNoise,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CCDScaleNoise = parseFloat(KeyCCDScaleNoise, v, c) },
		Validate: func(c *Config) {
			if c.CCDScaleNoise < 0 {
				c.LogInvalidField(KeyCCDScaleNoise, defaultCCDScaleNoise)
				c.CCDScaleNoise = defaultCCDScaleNoise
			}
		},
	},
	{
		Name:   KeyClipLow,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.ClipLow = parseBool(KeyClipLow, v, c) },
	},
	{
		Name:   KeyClipHigh,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.ClipHigh = parseBool(KeyClipHigh, v, c) },
	},
	{
		Name:   KeyRangeClipLow,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.RangeClipLow = parseBool(KeyRangeClipLow, v, c) },
	},
	{
		Name:   KeyRangeLow,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RangeLow = parseFloat(KeyRangeLow, v, c) },
		Validate: func(c *Config) {
			if c.RangeLow < 0 || c.RangeLow > 0.5 {
				c.LogInvalidField(KeyRangeLow, defaultRangeLow)
				c.RangeLow = defaultRangeLow
			}
		},
	},
	{
		Name:   KeyRangeClipHigh,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.RangeClipHigh = parseBool(KeyRangeClipHigh, v, c) },
	},
	{
		Name:   KeyRangeHigh,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.RangeHigh = parseFloat(KeyRangeHigh, v, c) },
		Validate: func(c *Config) {
			if c.RangeHigh < 0.5 || c.RangeHigh > 1 {
				c.LogInvalidField(KeyRangeHigh, defaultRangeHigh)
				c.RangeHigh = defaultRangeHigh
			}
		},
	},
	{
		Name:   KeyReportRangeRejection,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.ReportRangeRejection = parseBool(KeyReportRangeRejection, v, c) },
	},
	{
		Name:   KeyMapRangeRejection,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.MapRangeRejection = parseBool(KeyMapRangeRejection, v, c) },
	},
	{
		Name:   KeyLargeScaleClipLow,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.LargeScaleClipLow = parseBool(KeyLargeScaleClipLow, v, c) },
	},
	{
		Name:   KeyLargeScaleLowLayers,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeScaleLowProtectedLayers = parseInt(KeyLargeScaleLowLayers, v, c) },
		Validate: func(c *Config) {
			if c.LargeScaleLowProtectedLayers < 1 || c.LargeScaleLowProtectedLayers > 6 {
				c.LogInvalidField(KeyLargeScaleLowLayers, defaultLargeScaleLayers)
				c.LargeScaleLowProtectedLayers = defaultLargeScaleLayers
			}
		},
	},
	{
		Name:   KeyLargeScaleLowGrowth,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeScaleLowGrowth = parseInt(KeyLargeScaleLowGrowth, v, c) },
		Validate: func(c *Config) {
			if c.LargeScaleLowGrowth < 1 || c.LargeScaleLowGrowth > 20 {
				c.LogInvalidField(KeyLargeScaleLowGrowth, defaultLargeScaleGrowth)
				c.LargeScaleLowGrowth = defaultLargeScaleGrowth
			}
		},
	},
	{
		Name:   KeyLargeScaleClipHigh,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.LargeScaleClipHigh = parseBool(KeyLargeScaleClipHigh, v, c) },
	},
	{
		Name:   KeyLargeScaleHighLayers,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeScaleHighProtectedLayers = parseInt(KeyLargeScaleHighLayers, v, c) },
		Validate: func(c *Config) {
			if c.LargeScaleHighProtectedLayers < 1 || c.LargeScaleHighProtectedLayers > 6 {
				c.LogInvalidField(KeyLargeScaleHighLayers, defaultLargeScaleLayers)
				c.LargeScaleHighProtectedLayers = defaultLargeScaleLayers
			}
		},
	},
	{
		Name:   KeyLargeScaleHighGrowth,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.LargeScaleHighGrowth = parseInt(KeyLargeScaleHighGrowth, v, c) },
		Validate: func(c *Config) {
			if c.LargeScaleHighGrowth < 1 || c.LargeScaleHighGrowth > 20 {
				c.LogInvalidField(KeyLargeScaleHighGrowth, defaultLargeScaleGrowth)
				c.LargeScaleHighGrowth = defaultLargeScaleGrowth
			}
		},
	},
	{
		Name:   KeyGenerate64BitResult,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Generate64BitResult = parseBool(KeyGenerate64BitResult, v, c) },
	},
	{
		Name:   KeyGenerateRejectionMaps,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.GenerateRejectionMaps = parseBool(KeyGenerateRejectionMaps, v, c) },
	},
	{
		Name:   KeyGenerateIntegrated,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.GenerateIntegratedImage = parseBool(KeyGenerateIntegrated, v, c) },
	},
	{
		Name:   KeyGenerateDrizzleData,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.GenerateDrizzleData = parseBool(KeyGenerateDrizzleData, v, c) },
	},
	{
		Name:   KeyTruncateOnOutOfRange,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.TruncateOnOutOfRange = parseBool(KeyTruncateOnOutOfRange, v, c) },
	},
	{
		Name:   KeyEvaluateNoise,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.EvaluateNoise = parseBool(KeyEvaluateNoise, v, c) },
	},
	{
		Name:   KeyBufferSizeMB,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.BufferSizeMB = parseInt(KeyBufferSizeMB, v, c) },
		Validate: func(c *Config) {
			if c.BufferSizeMB < 0 || c.BufferSizeMB > 1024 {
				c.LogInvalidField(KeyBufferSizeMB, defaultBufferSizeMB)
				c.BufferSizeMB = defaultBufferSizeMB
			}
		},
	},
	{
		Name:   KeyStackSizeMB,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.StackSizeMB = parseInt(KeyStackSizeMB, v, c) },
		Validate: func(c *Config) {
			if c.StackSizeMB < 0 {
				c.LogInvalidField(KeyStackSizeMB, defaultStackSizeMB)
				c.StackSizeMB = defaultStackSizeMB
			}
		},
	},
	{
		Name:   KeyAutoMemorySize,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.AutoMemorySize = parseBool(KeyAutoMemorySize, v, c) },
	},
	{
		Name:   KeyAutoMemoryLimit,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.AutoMemoryLimit = parseFloat(KeyAutoMemoryLimit, v, c) },
		Validate: func(c *Config) {
			if c.AutoMemoryLimit < 0.1 || c.AutoMemoryLimit > 1 {
				c.LogInvalidField(KeyAutoMemoryLimit, defaultAutoMemoryLimit)
				c.AutoMemoryLimit = defaultAutoMemoryLimit
			}
		},
	},
	{
		Name:   KeyUseROI,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.UseROI = parseBool(KeyUseROI, v, c) },
	},
	{
		Name: KeyROI,
		Type: typeString,
		Update: func(c *Config, v string) {
			parts := strings.Split(strings.Replace(v, " ", "", -1), ",")
			if len(parts) != 4 {
				if c.Logger != nil {
					c.Logger.Warning("invalid ROI param", "value", v)
				}
				return
			}
			c.ROI = ROI{
				X0: parseInt(KeyROI, parts[0], c),
				Y0: parseInt(KeyROI, parts[1], c),
				X1: parseInt(KeyROI, parts[2], c),
				Y1: parseInt(KeyROI, parts[3], c),
			}
		},
	},
	{
		Name:   KeyUseCache,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.UseCache = parseBool(KeyUseCache, v, c) },
	},
	{
		Name:   KeyCacheDir,
		Type:   typeString,
		Update: func(c *Config, v string) { c.CacheDir = v },
	},
	{
		Name:   KeySubtractPedestals,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.SubtractPedestals = parseBool(KeySubtractPedestals, v, c) },
	},
	{
		Name:   KeyFileThreads,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.FileThreads = parseInt(KeyFileThreads, v, c) },
		Validate: func(c *Config) {
			if c.FileThreads < 0 {
				c.LogInvalidField(KeyFileThreads, defaultFileThreads)
				c.FileThreads = defaultFileThreads
			}
		},
	},
	{
		Name:   KeyBufferThreads,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.BufferThreads = parseInt(KeyBufferThreads, v, c) },
		Validate: func(c *Config) {
			if c.BufferThreads < 0 {
				c.BufferThreads = 0
			}
		},
	},
}

func combinationByName(v string, c *Config) Combination {
	switch strings.ToLower(v) {
	case "mean", "average":
		return CombineMean
	case "median":
		return CombineMedian
	case "min", "minimum":
		return CombineMin
	case "max", "maximum":
		return CombineMax
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid Combination param", "value", v)
	}
	return defaultCombination
}

func rejectionByName(v string, c *Config) Rejection {
	switch strings.ToLower(v) {
	case "none":
		return RejectNone
	case "minmax":
		return RejectMinMax
	case "percentile":
		return RejectPercentile
	case "sigma":
		return RejectSigma
	case "winsorized_sigma":
		return RejectWinsorizedSigma
	case "averaged_sigma":
		return RejectAveragedSigma
	case "linear_fit":
		return RejectLinearFit
	case "ccd_noise":
		return RejectCCDNoise
	case "esd":
		return RejectESD
	case "rcr":
		return RejectRCR
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid Rejection param", "value", v)
	}
	return defaultRejection
}

func normalizationByName(v string, c *Config) Normalization {
	switch strings.ToLower(v) {
	case "none":
		return NormNone
	case "additive":
		return NormAdditive
	case "multiplicative":
		return NormMultiplicative
	case "additive_scaling":
		return NormAdditiveScaling
	case "multiplicative_scaling":
		return NormMultiplicativeScaling
	case "local":
		return NormLocal
	case "adaptive":
		return NormAdaptive
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid normalization param", "value", v)
	}
	return defaultOutputNorm
}

func weightModeByName(v string, c *Config) WeightMode {
	switch strings.ToLower(v) {
	case "constant":
		return WeightConstant
	case "exposure":
		return WeightExposure
	case "inverse_noise":
		return WeightInverseNoise
	case "signal":
		return WeightSignal
	case "median":
		return WeightMedian
	case "mean":
		return WeightMean
	case "keyword":
		return WeightKeyword
	case "psf_signal":
		return WeightPSFSignal
	case "psf_snr":
		return WeightPSFSNR
	case "psf_scale_snr":
		return WeightPSFScaleSNR
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid WeightMode param", "value", v)
	}
	return defaultWeightMode
}

func scaleEstimatorByName(v string, c *Config) stats.ScaleEstimator {
	switch strings.ToLower(v) {
	case "avg_abs_dev":
		return stats.ScaleAvgDev
	case "mad":
		return stats.ScaleMAD
	case "biweight_midvariance", "bwmv":
		return stats.ScaleBWMV
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid WeightScale param", "value", v)
	}
	return defaultWeightScale
}

func noiseEstimatorByName(v string, c *Config) stats.NoiseEstimator {
	switch strings.ToLower(v) {
	case "ksigma":
		return stats.NoiseKSigma
	case "mrs":
		return stats.NoiseMRS
	case "nstar":
		return stats.NoiseNStar
	}
	if c.Logger != nil {
		c.Logger.Warning("invalid NoiseEstimator param", "value", v)
	}
	return defaultNoiseEstimator
}
