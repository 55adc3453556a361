package usecase

import (
	"github.com/satriahrh/voxgate/domain"
)

// Capability names used as keys of HealthReport.Providers.
const (
	CapabilityChat      = "chat"
	CapabilitySummarize = "summarize"
	CapabilitySpeech    = "speech"
)

// HealthReport summarizes which capabilities are usable.
type HealthReport struct {
	Status          string                         `json:"status"`
	APIConfigured   bool                           `json:"api_configured"`
	Providers       map[string]domain.ProviderInfo `json:"providers"`
	AvailableModels []string                       `json:"available_models"`
}

// Health reports the binding and configuration of every capability. It makes
// no network calls. Status is "ok" when every capability is configured and
// "degraded" otherwise.
func (g *Gateway) Health() HealthReport {
	providers := g.providers()

	report := HealthReport{
		Status:        "ok",
		APIConfigured: true,
		Providers:     providers,
	}

	seen := make(map[string]bool)
	for _, capability := range []string{CapabilityChat, CapabilitySummarize, CapabilitySpeech} {
		info := providers[capability]
		if !info.Configured {
			report.APIConfigured = false
			report.Status = "degraded"
			continue
		}
		if !seen[info.Model] {
			seen[info.Model] = true
			report.AvailableModels = append(report.AvailableModels, info.Model)
		}
	}
	if report.AvailableModels == nil {
		report.AvailableModels = []string{}
	}
	return report
}

func (g *Gateway) providers() map[string]domain.ProviderInfo {
	return map[string]domain.ProviderInfo{
		CapabilityChat:      g.chat.Describe(),
		CapabilitySummarize: g.summarize.Describe(),
		CapabilitySpeech:    g.speech.Describe(),
	}
}
