package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"solana-sandwich-lab/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Fat Sandwich Detection Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	if r.Partial {
		sb.WriteString(fmt.Sprintf("**Partial result.** Deadline reached; %d partition(s) not scanned: %s\n\n",
			len(r.SkippedPartitions), strings.Join(r.SkippedPartitions, ", ")))
	}

	writeInput(&sb, r)
	writeConfig(&sb, r)

	// Stage funnel
	sb.WriteString("## Run Statistics\n\n")
	if len(r.Stats) > 0 {
		sb.WriteString("| Counter | Value |\n")
		sb.WriteString("|---------|-------|\n")
		for _, row := range r.Stats {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Name, row.Value))
		}
	} else {
		sb.WriteString("No run statistics available.\n")
	}
	sb.WriteString("\n")

	writeSummary(&sb, r.Summary)

	if r.Comparison != nil {
		writeComparison(&sb, r.Comparison)
	}

	return sb.String()
}

func writeInput(sb *strings.Builder, r *Report) {
	sb.WriteString("## Input\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if r.Input != nil {
		sb.WriteString(fmt.Sprintf("| Total Rows | %d |\n", r.Input.TotalRows))
		sb.WriteString(fmt.Sprintf("| Loaded | %d |\n", r.Input.Loaded))
		sb.WriteString(fmt.Sprintf("| Filtered (kind) | %d |\n", r.Input.Filtered))
		sb.WriteString(fmt.Sprintf("| Skipped (malformed) | %d |\n", r.Input.Skipped))
	}
	sb.WriteString(fmt.Sprintf("| Events Processed | %d |\n", r.EventsProcessed))
	sb.WriteString(fmt.Sprintf("| Venue Partitioning | %s |\n", onOff(r.Capabilities.HasVenue)))
	sb.WriteString(fmt.Sprintf("| Validator Stats | %s |\n", onOff(r.Capabilities.HasValidator)))
	sb.WriteString(fmt.Sprintf("| Token Pair Check | %s |\n", onOff(r.Capabilities.HasTokenPair)))
	if r.Capabilities.ValidatorSource != "" {
		sb.WriteString(fmt.Sprintf("| Validator Source | %s |\n", r.Capabilities.ValidatorSource))
	}
	sb.WriteString("\n")

	if r.Input != nil && len(r.Input.SkipReasons) > 0 {
		sb.WriteString("### Skipped Rows\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		reasons := make([]string, 0, len(r.Input.SkipReasons))
		for reason := range r.Input.SkipReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", reason, r.Input.SkipReasons[reason]))
		}
		sb.WriteString("\n")
	}
}

func writeConfig(sb *strings.Builder, r *Report) {
	windows := make([]string, len(r.Config.WindowSeconds))
	for i, w := range r.Config.WindowSeconds {
		windows[i] = fmt.Sprintf("%ds", w)
	}

	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| window_seconds | %s |\n", strings.Join(windows, ", ")))
	sb.WriteString(fmt.Sprintf("| min_trades | %d |\n", r.Config.MinTrades))
	sb.WriteString(fmt.Sprintf("| max_victim_ratio | %.2f |\n", r.Config.MaxVictimRatio))
	sb.WriteString(fmt.Sprintf("| min_attacker_trades | %d |\n", r.Config.MinAttackerTrades))
	sb.WriteString(fmt.Sprintf("| token_pair_policy | %s |\n", r.Config.TokenPairPolicy))
	sb.WriteString(fmt.Sprintf("| strict_wash_filter | %t |\n", r.Config.StrictWashFilter))
	sb.WriteString("\n")
}

func writeSummary(sb *strings.Builder, s *metrics.Summary) {
	sb.WriteString("## Detections\n\n")
	if s == nil || s.TotalDetections == 0 {
		sb.WriteString("No detections.\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("Total: %d | Unique attackers: %d | Unique victims: %d | Venues affected: %d\n\n",
		s.TotalDetections, s.UniqueAttackers, s.Victims.TotalUnique, s.VenuesAffected))

	sb.WriteString("### By Window\n\n")
	sb.WriteString("| Window | Count | Share |\n")
	sb.WriteString("|--------|-------|-------|\n")
	for _, w := range s.ByWindow {
		sb.WriteString(fmt.Sprintf("| %ds | %d | %.1f%% |\n", w.WindowSeconds, w.Count, w.Percent))
	}
	sb.WriteString("\n")

	sb.WriteString("### By Confidence\n\n")
	sb.WriteString("| Label | Count | Share |\n")
	sb.WriteString("|-------|-------|-------|\n")
	for _, l := range s.ByConfidence {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", l.Label, l.Count, l.Percent))
	}
	sb.WriteString("\n")

	sb.WriteString("### Timing\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mean Span (ms) | %.1f |\n", s.Span.MeanMs))
	sb.WriteString(fmt.Sprintf("| Median Span (ms) | %.1f |\n", s.Span.MedianMs))
	sb.WriteString(fmt.Sprintf("| Min Span (ms) | %d |\n", s.Span.MinMs))
	sb.WriteString(fmt.Sprintf("| Max Span (ms) | %d |\n", s.Span.MaxMs))
	sb.WriteString(fmt.Sprintf("| Mean Slot Span | %.2f |\n", s.Slots.MeanSpan))
	sb.WriteString(fmt.Sprintf("| Max Slot Span | %d |\n", s.Slots.MaxSpan))
	sb.WriteString(fmt.Sprintf("| Single Slot | %d (%.1f%%) |\n", s.Slots.SingleSlot, s.Slots.SingleSlotPct))
	sb.WriteString(fmt.Sprintf("| Multi Slot | %d (%.1f%%) |\n", s.Slots.MultiSlot, s.Slots.MultiSlotPct))
	sb.WriteString(fmt.Sprintf("| Mean Victims | %.2f |\n", s.Victims.MeanPerDetection))
	sb.WriteString(fmt.Sprintf("| Max Victims | %d |\n", s.Victims.MaxPerDetection))
	sb.WriteString("\n")

	writeCounts(sb, "Top Attackers", "Attacker", s.TopAttackers)
	if s.UniqueValidators > 0 {
		writeCounts(sb, "Top Validators", "Validator", s.TopValidators)
	}
	writeCounts(sb, "Top Venues", "Venue", s.TopVenues)
}

func writeCounts(sb *strings.Builder, title, column string, counts []metrics.Count) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	sb.WriteString(fmt.Sprintf("| %s | Detections |\n", column))
	sb.WriteString("|---|------------|\n")
	for _, c := range counts {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", c.Key, c.Count))
	}
	sb.WriteString("\n")
}

func writeComparison(sb *strings.Builder, c *metrics.Comparison) {
	sb.WriteString("## Method Comparison\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Baseline Detections | %d |\n", c.BaselineCount))
	sb.WriteString(fmt.Sprintf("| New Detections | %d |\n", c.NewCount))
	sb.WriteString(fmt.Sprintf("| Reduction | %d (%.1f%%) |\n", c.Reduction, c.ReductionPct))
	sb.WriteString(fmt.Sprintf("| Quality | %s |\n", c.Quality))
	sb.WriteString(fmt.Sprintf("| Mean Span (s) | %.3f |\n", c.MeanSpanSeconds))
	sb.WriteString(fmt.Sprintf("| Max Span (s) | %.3f |\n", c.MaxSpanSeconds))
	sb.WriteString("\n")
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
