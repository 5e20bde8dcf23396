package frontier

import (
	"net/url"
	"regexp"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
)

// band is the priority partition a task falls into. Thresholds
// partition priority values into High/Normal/Low bands; within a band,
// tasks dequeue FIFO.
type band int

const (
	bandLow band = iota
	bandNormal
	bandHigh
)

func bandOf(priority int, cfg config.PriorityConfig) band {
	switch {
	case priority >= cfg.ThresholdHigh:
		return bandHigh
	case priority < cfg.ThresholdLow:
		return bandLow
	default:
		return bandNormal
	}
}

// ComputePriority scores a candidate task: base value plus category
// adjustments, depth penalty, anchor-text boost, query/fragment
// penalty, and pattern-match boost. Exported so the content pipeline
// can precompute a discovered link's priority before it ever reaches
// Admit.
func ComputePriority(rawURL string, category task.DiscoveryCategory, depth int, anchorText string, cfg config.PriorityConfig) int {
	p := cfg.BasePriority

	switch category {
	case task.CategoryInDomain:
		p += cfg.InDomainBoost
	case task.CategorySubdomain:
		p += cfg.SubdomainAdjust
	case task.CategoryCrossDomain:
		p -= cfg.CrossDomainPenalty
	case task.CategoryAsset, task.CategoryDocument:
		p -= cfg.AssetPenalty
	}

	p -= depth * cfg.DepthPenaltyPerLevel

	if anchorText != "" {
		p += cfg.AnchorTextBoost
	}

	if parsed, err := url.Parse(rawURL); err == nil {
		if parsed.RawQuery != "" {
			p -= cfg.QueryPenalty
		}
		if parsed.Fragment != "" {
			p -= cfg.FragmentPenalty
		}
	}

	for _, pattern := range cfg.PatternTargets {
		if re, err := regexp.Compile(pattern); err == nil && re.MatchString(rawURL) {
			p += cfg.PatternBoost
			break
		}
	}

	return p
}
