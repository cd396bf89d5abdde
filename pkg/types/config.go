package types

import (
	"fmt"
	"strings"
	"time"
)

// OutputKind identifies one of the two final artifacts a pipeline run can
// produce for a scanned document.
type OutputKind string

const (
	// OutputPDF is the searchable document assembled from per-page OCR PDFs.
	OutputPDF OutputKind = "pdf"
	// OutputText is the page-separated plain text file.
	OutputText OutputKind = "txt"
)

// ColorMode selects how pages are rasterized before OCR.
type ColorMode string

const (
	ColorGray  ColorMode = "gray"
	ColorColor ColorMode = "color"
)

const (
	DefaultDensity          = 400
	DefaultMaxWorkers       = 4
	DefaultEngineMode       = 1
	DefaultPageSegMode      = 6
	DefaultMergeBatchSize   = 200
	DefaultToolTimeout      = 10 * time.Minute
	DefaultSearchableSuffix = "-searchable"
)

// DefaultLanguages are the OCR language codes used when none are configured.
var DefaultLanguages = []string{"ara", "eng"}

// PipelineConfig holds every setting of one OCR run. It is passed by value
// into the pipeline and never mutated after WithDefaults.
type PipelineConfig struct {
	// Density is the rasterization resolution in DPI.
	Density int `json:"density" yaml:"density"`

	// ColorMode is "gray" (default) or "color".
	ColorMode ColorMode `json:"color_mode" yaml:"color_mode"`

	// MaxWorkers bounds the number of concurrent OCR invocations.
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// Languages are OCR language codes, joined with "+" on the command line.
	Languages []string `json:"languages" yaml:"languages"`

	// EngineMode is the OCR engine mode (--oem), 0 to 3. Zero is a valid
	// mode, so WithDefaults leaves it alone; start from DefaultPipelineConfig.
	EngineMode int `json:"engine_mode" yaml:"engine_mode"`

	// PageSegMode is the page segmentation mode (--psm), 0 to 13. 6 treats the
	// page as a single uniform block of text. Like EngineMode, zero is kept.
	PageSegMode int `json:"page_segmentation_mode" yaml:"page_segmentation_mode"`

	// Outputs lists the artifacts to produce. Only the OCR invocations for
	// these kinds are run.
	Outputs []OutputKind `json:"outputs" yaml:"outputs"`

	// KeepIntermediate retains the workspace (page images and fragments).
	KeepIntermediate bool `json:"keep_intermediate_images" yaml:"keep_intermediate_images"`

	// MergeBatchSize is the number of page fragments merged per intermediate chunk.
	MergeBatchSize int `json:"merge_batch_size" yaml:"merge_batch_size"`

	// ToolTimeout bounds every external tool invocation.
	ToolTimeout time.Duration `json:"tool_timeout" yaml:"tool_timeout"`

	// Pages optionally restricts OCR to a page range such as "1,3,5-8".
	Pages string `json:"pages,omitempty" yaml:"pages,omitempty"`

	// WorkspaceRoot is where workspaces are created. Empty means the source
	// document's parent directory.
	WorkspaceRoot string `json:"workspace_root,omitempty" yaml:"workspace_root,omitempty"`

	// SearchableSuffix is appended to the base name of the searchable PDF.
	SearchableSuffix string `json:"searchable_suffix" yaml:"searchable_suffix"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EngineMode:  DefaultEngineMode,
		PageSegMode: DefaultPageSegMode,
	}.WithDefaults()
}

// WithDefaults returns a copy of c with zero-valued fields filled in. The OCR
// engine and segmentation modes are not touched: zero is meaningful for both.
func (c PipelineConfig) WithDefaults() PipelineConfig {
	if c.Density == 0 {
		c.Density = DefaultDensity
	}
	if c.ColorMode == "" {
		c.ColorMode = ColorGray
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if len(c.Languages) == 0 {
		c.Languages = append([]string(nil), DefaultLanguages...)
	} else {
		c.Languages = append([]string(nil), c.Languages...)
	}
	if len(c.Outputs) == 0 {
		c.Outputs = []OutputKind{OutputPDF, OutputText}
	} else {
		c.Outputs = append([]OutputKind(nil), c.Outputs...)
	}
	if c.MergeBatchSize == 0 {
		c.MergeBatchSize = DefaultMergeBatchSize
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.SearchableSuffix == "" {
		c.SearchableSuffix = DefaultSearchableSuffix
	}
	return c
}

// Validate reports the first invalid setting.
func (c PipelineConfig) Validate() error {
	if c.Density < 1 {
		return fmt.Errorf("density must be positive, got %d", c.Density)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.MergeBatchSize < 1 {
		return fmt.Errorf("merge_batch_size must be at least 1, got %d", c.MergeBatchSize)
	}
	if c.EngineMode < 0 || c.EngineMode > 3 {
		return fmt.Errorf("engine_mode must be between 0 and 3, got %d", c.EngineMode)
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("page_segmentation_mode must be between 0 and 13, got %d", c.PageSegMode)
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("tool_timeout must not be negative, got %s", c.ToolTimeout)
	}
	switch c.ColorMode {
	case ColorGray, ColorColor:
	default:
		return fmt.Errorf("unknown color_mode %q (want gray or color)", c.ColorMode)
	}
	if len(c.Outputs) == 0 {
		return fmt.Errorf("at least one output kind is required")
	}
	for _, o := range c.Outputs {
		if o != OutputPDF && o != OutputText {
			return fmt.Errorf("unknown output kind %q (want pdf or txt)", o)
		}
	}
	for _, l := range c.Languages {
		if strings.TrimSpace(l) == "" || strings.Contains(l, "+") {
			return fmt.Errorf("invalid language code %q", l)
		}
	}
	return nil
}

// Wants reports whether kind is among the requested outputs.
func (c PipelineConfig) Wants(kind OutputKind) bool {
	for _, o := range c.Outputs {
		if o == kind {
			return true
		}
	}
	return false
}

// LanguageArg joins the language codes the way the OCR engine expects.
func (c PipelineConfig) LanguageArg() string {
	return strings.Join(c.Languages, "+")
}

// ParseOutputs converts a list such as ["pdf", "txt"] into output kinds.
func ParseOutputs(values []string) ([]OutputKind, error) {
	var out []OutputKind
	seen := make(map[OutputKind]bool)
	for _, v := range values {
		kind := OutputKind(strings.ToLower(strings.TrimSpace(v)))
		switch kind {
		case "":
			continue
		case "text":
			kind = OutputText
		case OutputPDF, OutputText:
		default:
			return nil, fmt.Errorf("unknown output kind %q (want pdf or txt)", v)
		}
		if !seen[kind] {
			seen[kind] = true
			out = append(out, kind)
		}
	}
	return out, nil
}
