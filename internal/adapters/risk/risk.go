// internal/adapters/risk/risk.go
package risk

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
)

// Nombres de reglas.
const (
	RuleRoleAccount       = "role_account"
	RuleFreeMail          = "free_mail_contact"
	RuleSubdomainSprawl   = "subdomain_sprawl"
	RuleStaleData         = "stale_data"
	RuleDarkWebSource     = "darkweb_source"
	RuleDisposableEmail   = "disposable_email"
	RulePublicContact     = "public_contact"
	RulePublicSocialGraph = "social_footprint"
)

// Thresholds ajusta las reglas.
type Thresholds struct {
	// SubdomainSprawl dispara la regla a partir de N subdominios. Default: 10
	SubdomainSprawl int
	// StaleRatio fracción de entidades stale/very_stale. Default: 0.5
	StaleRatio float64
	// SocialProfiles dispara la regla a partir de N perfiles. Default: 3
	SocialProfiles int
}

// Assessor evalúa señales de exposición con reglas fijas y ponderadas.
type Assessor struct {
	th     Thresholds
	now    func() time.Time
	logger logx.Logger
}

var _ ports.RiskAssessor = (*Assessor)(nil)

// New crea el assessor con thresholds por defecto donde falten.
func New(th Thresholds, logger logx.Logger) *Assessor {
	if th.SubdomainSprawl <= 0 {
		th.SubdomainSprawl = 10
	}
	if th.StaleRatio <= 0 {
		th.StaleRatio = 0.5
	}
	if th.SocialProfiles <= 0 {
		th.SocialProfiles = 3
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Assessor{th: th, now: time.Now, logger: logger.With("component", "risk")}
}

// AssessRisk implements ports.RiskAssessor
func (a *Assessor) AssessRisk(ctx context.Context, taskID string, entities []domain.NormalizedEntity) (ports.RiskReport, error) {
	if err := ctx.Err(); err != nil {
		return ports.RiskReport{}, err
	}

	var (
		findings          []ports.RiskFinding
		subdomains, stale int
		social            int
	)
	capped := map[string]float64{}
	add := func(rule, entity, desc string, weight, limit float64) {
		if capped[rule]+weight > limit {
			weight = limit - capped[rule]
		}
		if weight <= 0 {
			return
		}
		capped[rule] += weight
		findings = append(findings, ports.RiskFinding{Rule: rule, Entity: entity, Weight: weight, Description: desc})
	}

	for _, e := range entities {
		key := e.Fingerprint().Key()

		if slices.Contains(e.Sources(), "darkweb") {
			add(RuleDarkWebSource, key, "entity observed on a dark-web source", 30, 40)
		}
		switch f, _ := e.Enrichment["freshness"].(string); f {
		case "stale", "very_stale":
			stale++
		}

		switch e.Type {
		case domain.EntityEmail:
			if b, _ := e.Enrichment["is_role_account"].(bool); b {
				add(RuleRoleAccount, key, "role account exposed (phishing target)", 8, 24)
			}
			if b, _ := e.Enrichment["is_free_mail"].(bool); b {
				add(RuleFreeMail, key, "free-mail address used as contact", 4, 12)
			}
			if b, _ := e.Metadata["disposable"].(bool); b {
				add(RuleDisposableEmail, key, "disposable mailbox", 10, 10)
			}
			if role, _ := e.Metadata["contact_role"].(string); role != "" {
				add(RulePublicContact, key, fmt.Sprintf("%s contact published in registration data", role), 5, 15)
			}
		case domain.EntitySubdomain:
			subdomains++
		case domain.EntitySocialProfile:
			social++
		}
	}

	if subdomains >= a.th.SubdomainSprawl {
		w := 15.0
		if subdomains >= a.th.SubdomainSprawl*5 {
			w = 25
		}
		add(RuleSubdomainSprawl, "", fmt.Sprintf("%d subdomains exposed", subdomains), w, 25)
	}
	if len(entities) > 0 {
		if ratio := float64(stale) / float64(len(entities)); ratio >= a.th.StaleRatio {
			add(RuleStaleData, "", fmt.Sprintf("%.0f%% of entities are stale", ratio*100), 10, 10)
		}
	}
	if social >= a.th.SocialProfiles {
		add(RulePublicSocialGraph, "", fmt.Sprintf("%d linked social profiles", social), 10, 10)
	}

	var score float64
	for _, f := range findings {
		score += f.Weight
	}
	score = math.Min(100, score)

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Weight > findings[j].Weight })

	report := ports.RiskReport{
		TaskID:      taskID,
		Score:       score,
		Level:       Level(score),
		Findings:    findings,
		EvaluatedAt: a.now().UTC(),
	}
	a.logger.Debug("risk evaluated", "task_id", taskID, "score", score, "findings", len(findings))
	return report, nil
}

// Level traduce un score 0-100 a su nivel.
func Level(score float64) string {
	switch {
	case score >= 75:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 25:
		return "medium"
	default:
		return "low"
	}
}
