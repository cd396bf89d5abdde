package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/scanocr/pkg/types"
)

// setDefaults registers the pipeline defaults under the same keys as the
// YAML configuration.
func setDefaults() {
	d := types.DefaultPipelineConfig()
	viper.SetDefault("density", d.Density)
	viper.SetDefault("color_mode", string(d.ColorMode))
	viper.SetDefault("max_workers", d.MaxWorkers)
	viper.SetDefault("languages", d.Languages)
	viper.SetDefault("engine_mode", d.EngineMode)
	viper.SetDefault("page_segmentation_mode", d.PageSegMode)
	viper.SetDefault("outputs", []string{string(types.OutputPDF), string(types.OutputText)})
	viper.SetDefault("keep_intermediate_images", d.KeepIntermediate)
	viper.SetDefault("merge_batch_size", d.MergeBatchSize)
	viper.SetDefault("tool_timeout", d.ToolTimeout)
	viper.SetDefault("searchable_suffix", d.SearchableSuffix)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}

// pipelineConfig assembles the effective configuration from flags,
// environment, config file and defaults, in that order of precedence.
func pipelineConfig() (types.PipelineConfig, error) {
	outputs, err := types.ParseOutputs(splitList(viper.GetStringSlice("outputs")))
	if err != nil {
		return types.PipelineConfig{}, err
	}
	cfg := types.PipelineConfig{
		Density:          viper.GetInt("density"),
		ColorMode:        types.ColorMode(strings.ToLower(viper.GetString("color_mode"))),
		MaxWorkers:       viper.GetInt("max_workers"),
		Languages:        splitList(viper.GetStringSlice("languages")),
		EngineMode:       viper.GetInt("engine_mode"),
		PageSegMode:      viper.GetInt("page_segmentation_mode"),
		Outputs:          outputs,
		KeepIntermediate: viper.GetBool("keep_intermediate_images"),
		MergeBatchSize:   viper.GetInt("merge_batch_size"),
		ToolTimeout:      viper.GetDuration("tool_timeout"),
		Pages:            viper.GetString("pages"),
		WorkspaceRoot:    viper.GetString("workspace_root"),
		SearchableSuffix: viper.GetString("searchable_suffix"),
	}.WithDefaults()
	return cfg, cfg.Validate()
}

// splitList flattens values such as ["ara+eng"] or ["pdf,txt"] into items.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.FieldsFunc(v, func(r rune) bool {
			return r == '+' || r == ',' || r == ' ' || r == '\t'
		}) {
			out = append(out, item)
		}
	}
	return out
}
