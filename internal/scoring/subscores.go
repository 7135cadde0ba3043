package scoring

import "github.com/joelkehle/proposal-vetting/internal/proposal"

// Each sub-score maps a slice of the proposal onto [0,100].

func ltvScore(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	return clamp(ratio / 3 * 50)
}

func Efficiency(p proposal.Proposal, m Metrics) float64 {
	marginScore := clamp(p.GrossMargin * 0.5)
	return clamp(ltvScore(m.LTVCACRatio) + marginScore)
}

func Growth(p proposal.Proposal) float64 {
	rate := p.MonthlyGrowthRate
	switch {
	case rate >= 20:
		return 100
	case rate >= 10:
		return 80
	case rate >= 5:
		return 60
	default:
		return clamp(rate * 10)
	}
}

func marketSizeScore(tam float64) float64 {
	switch {
	case tam >= 10000:
		return 100
	case tam >= 1000:
		return 80
	case tam >= 100:
		return 60
	default:
		return 40
	}
}

// captureScore rewards an obtainable share of the total market; 5% of TAM
// scores 100. Without both figures it is neutral.
func captureScore(tam, som float64) float64 {
	if tam > 0 && som > 0 {
		return clamp(som / tam * 100 * 20)
	}
	return 50
}

func Market(p proposal.Proposal) float64 {
	return clamp((marketSizeScore(p.TAM) + captureScore(p.TAM, p.SOM)) / 2)
}

func Team(p proposal.Proposal) float64 {
	sizeScore := clamp(float64(p.TeamSize) * 5)
	technicalRatio := clamp(float64(p.TechnicalTeam) / float64(max(p.TeamSize, 1)) * 100)
	advisorScore := clamp(float64(p.AdvisorsCount) * 20)
	return clamp((sizeScore + technicalRatio + advisorScore) / 3)
}

func Traction(p proposal.Proposal) float64 {
	customerScore := clamp(float64(p.CurrentCustomers) / 10)
	revenueScore := clamp(p.ARR / 100_000 * 100)
	fundingScore := clamp(p.FundingRaised / 1_000_000 * 50)
	return clamp((customerScore + revenueScore + fundingScore) / 3)
}

// Risk is inverted: higher means safer.
func Risk(p proposal.Proposal) float64 {
	runwayScore := clamp(p.RunwayMonths / 18 * 100)
	churnScore := clamp(100 - p.ChurnRate*10)
	return clamp((runwayScore + churnScore) / 2)
}
