package dataset

import (
	"strings"

	"exe-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// FeaturePolicy decides which table columns are admissible predictors.
type FeaturePolicy struct {
	// Excluded lists substrings of post-filter or derived metric names. A column whose
	// lower-cased name contains any of them is never a predictor.
	Excluded []string
	// Whitelist restricts predictors to the features the packer computes at pack time.
	// Nil means no restriction.
	Whitelist []string
	// AllowExtra names columns admitted regardless of Excluded and Whitelist.
	AllowExtra []string
	// AllowPostFilter empties Excluded. Offline analysis only: the resulting feature set is
	// not computable by the packer.
	AllowPostFilter bool

	LabelColumn string
	PathColumn  string
}

// DefaultExcludedSubstrings returns the derived-metric markers used by the collectors.
func DefaultExcludedSubstrings() []string {
	return []string{
		// post-filter metrics and derived ratios
		"bcj_final", "kanzi_final", "bcj_ratio", "kanzi_ratio",
		"bcj_elapsed", "kanzi_elapsed", "bcj_maxrss", "kanzi_maxrss",
		"bcj_filtered_len", "kanzi_filtered_len",
		"kexp", "ratio_bcj", "ratio_kanzi", "delta_eff", "comp_gain_k_vs_b_lz4hc",
		// per-stream metrics over raw/bcj/kanzi data
		"ent_raw", "ent_bcj", "ent_kanzi",
		"autoc1_raw", "autoc1_bcj", "autoc1_kanzi",
		"entstd_raw", "entstd_bcj", "entstd_kanzi",
		"diffent_raw", "diffent_bcj", "diffent_kanzi",
		"lz4_", "lz4hc_",
	}
}

// DefaultPackerWhitelist returns the features the packer can compute at runtime.
func DefaultPackerWhitelist() []string {
	return []string{
		"file_size", "n_load", "etype", "has_interp",
		"text_sz", "ro_sz", "data_sz",
		"text_ratio", "ro_ratio", "data_ratio",
		"text_entropy", "ro_entropy", "data_entropy",
		"zeros_ratio_total", "zero_runs_16", "zero_runs_32",
		"ascii_ratio_rodata",
		"e8_cnt", "e9_cnt", "ff_calljmp_cnt", "eb_cnt", "jcc32_cnt",
		"branch_density_per_kb", "riprel_estimate", "nop_ratio_text", "imm64_mov_cnt",
		"align_pad_ratio", "ro_ptr_like_cnt",
		"rel32_disp_entropy8", "rel32_intext_ratio", "rel32_intext_cnt", "max_rel32_abs",
		"avg_p_align_log2", "max_p_align_log2",
		"x_load_cnt", "ro_load_cnt", "rw_load_cnt", "bss_sz",
		"ret_cnt", "rel_branch_ratio", "avg_rel32_abs",
	}
}

// DefaultPolicy returns the runtime-consistent policy: default exclusions plus the packer
// whitelist.
func DefaultPolicy() FeaturePolicy {
	return FeaturePolicy{
		Excluded:    DefaultExcludedSubstrings(),
		Whitelist:   DefaultPackerWhitelist(),
		LabelColumn: common.ColumnWinner,
		PathColumn:  common.ColumnPath,
	}
}

func (p FeaturePolicy) activeExclusions() []string {
	if p.AllowPostFilter {
		return nil
	}
	return p.Excluded
}

func (p FeaturePolicy) isReserved(col string) bool {
	lc := strings.ToLower(col)
	return lc == strings.ToLower(p.labelColumn()) || lc == strings.ToLower(p.pathColumn())
}

func (p FeaturePolicy) labelColumn() string {
	if p.LabelColumn == "" {
		return common.ColumnWinner
	}
	return p.LabelColumn
}

func (p FeaturePolicy) pathColumn() string {
	if p.PathColumn == "" {
		return common.ColumnPath
	}
	return p.PathColumn
}

// IsPrefilter reports whether col is neither reserved nor matched by an active exclusion.
func (p FeaturePolicy) IsPrefilter(col string) bool {
	if p.isReserved(col) {
		return false
	}
	lc := strings.ToLower(col)
	for _, s := range p.activeExclusions() {
		if s != "" && strings.Contains(lc, strings.ToLower(s)) {
			return false
		}
	}
	return true
}

// SelectFeatures returns the admissible predictor columns of t in header order.
// Columns with a non-numeric cell are dropped without error.
func SelectFeatures(t *Table, p FeaturePolicy) []string {
	allowed := toSet(p.AllowExtra)
	var whitelist map[string]struct{}
	if p.Whitelist != nil {
		whitelist = toSet(p.Whitelist)
	}

	var cols []string
	seen := make(map[string]struct{}, len(t.Header))
	for _, c := range t.Header {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		if p.isReserved(c) {
			continue
		}
		if _, ok := allowed[c]; !ok {
			if !p.IsPrefilter(c) {
				continue
			}
			if whitelist != nil {
				if _, ok := whitelist[c]; !ok {
					continue
				}
			}
		}
		if !t.isNumericColumn(c) {
			log.Debug().Str("column", c).Msg("Dropping non-numeric column")
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, s := range items {
		out[s] = struct{}{}
	}
	return out
}
