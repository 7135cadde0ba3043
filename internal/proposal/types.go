package proposal

import (
	"fmt"
	"strings"
)

type Industry string

const (
	IndustryTechnology    Industry = "Technology"
	IndustryHealthcare    Industry = "Healthcare"
	IndustryFinTech       Industry = "FinTech"
	IndustryECommerce     Industry = "E-commerce"
	IndustrySaaS          Industry = "SaaS"
	IndustryConsumerGoods Industry = "Consumer Goods"
	IndustryB2BServices   Industry = "B2B Services"
	IndustryEducation     Industry = "Education"
	IndustryCleanTech     Industry = "CleanTech"
	IndustryBioTech       Industry = "BioTech"
	IndustryAIML          Industry = "AI/ML"
	IndustryCybersecurity Industry = "Cybersecurity"
	IndustryOther         Industry = "Other"
)

type Stage string

const (
	StageIdea         Stage = "Idea/Concept"
	StageMVP          Stage = "MVP"
	StageEarlyRevenue Stage = "Early Revenue"
	StageGrowth       Stage = "Growth"
	StageScale        Stage = "Scale"
	StagePreIPO       Stage = "Pre-IPO"
)

type Mode string

const (
	ModeLight Mode = "Light"
	ModePro   Mode = "Pro"
)

// ParseMode accepts the mode names case-insensitively. An empty string
// selects Light.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "light":
		return ModeLight, nil
	case "pro":
		return ModePro, nil
	}
	return "", fmt.Errorf("unknown mode %q (want light or pro)", s)
}

type DocSlot string

const (
	DocProblem      DocSlot = "problem_doc"
	DocMarket       DocSlot = "market_doc"
	DocBusinessPlan DocSlot = "business_plan_doc"
	DocTeam         DocSlot = "team_doc"
	DocFinancial    DocSlot = "financial_doc"
	DocCompetitive  DocSlot = "competitive_doc"
	DocAdditional   DocSlot = "additional_doc"
)

// DocSlots lists the upload slots in form order.
var DocSlots = []DocSlot{DocProblem, DocMarket, DocBusinessPlan, DocTeam, DocFinancial, DocCompetitive, DocAdditional}

func ParseDocSlot(s string) (DocSlot, bool) {
	for _, slot := range DocSlots {
		if string(slot) == s {
			return slot, true
		}
	}
	return "", false
}

// Proposal is the full set of form inputs captured at submission time.
// Numeric fields are zero when absent. Values are never mutated once the
// proposal enters the pipeline; enrichment produces a copy.
type Proposal struct {
	CompanyName  string   `json:"company_name" yaml:"company_name" validate:"required"`
	FoundingYear int      `json:"founding_year,omitempty" yaml:"founding_year"`
	Website      string   `json:"website,omitempty" yaml:"website"`
	Industry     Industry `json:"industry,omitempty" yaml:"industry"`
	Stage        Stage    `json:"stage,omitempty" yaml:"stage"`
	Location     string   `json:"location,omitempty" yaml:"location"`

	ProblemSolution   string  `json:"problem_solution" yaml:"problem_solution" validate:"required"`
	MarketInfo        string  `json:"market_info" yaml:"market_info" validate:"required"`
	TAM               float64 `json:"tam" yaml:"tam"`
	SAM               float64 `json:"sam" yaml:"sam"`
	SOM               float64 `json:"som" yaml:"som"`
	BusinessModelDesc string  `json:"business_model_desc" yaml:"business_model_desc" validate:"required"`
	RevenueModel      string  `json:"revenue_model,omitempty" yaml:"revenue_model"`
	PricingModel      string  `json:"pricing_model,omitempty" yaml:"pricing_model"`
	Uniqueness        string  `json:"uniqueness" yaml:"uniqueness" validate:"required"`
	IPAssets          string  `json:"ip_assets,omitempty" yaml:"ip_assets"`
	Progress          string  `json:"progress,omitempty" yaml:"progress"`

	TeamExperience string `json:"team_experience" yaml:"team_experience" validate:"required"`
	TeamStructure  string `json:"team_structure" yaml:"team_structure" validate:"required"`
	TeamSize       int    `json:"team_size" yaml:"team_size"`
	TechnicalTeam  int    `json:"technical_team" yaml:"technical_team"`
	AdvisorsCount  int    `json:"advisors_count" yaml:"advisors_count"`
	TeamDynamics   string `json:"team_dynamics,omitempty" yaml:"team_dynamics"`
	HiringStrategy string `json:"hiring_strategy,omitempty" yaml:"hiring_strategy"`

	FundingRaised         float64 `json:"funding_raised" yaml:"funding_raised"`
	FundingSeeking        float64 `json:"funding_seeking" yaml:"funding_seeking" validate:"required"`
	FundingType           string  `json:"funding_type,omitempty" yaml:"funding_type"`
	Valuation             float64 `json:"valuation,omitempty" yaml:"valuation"`
	UseOfFunds            string  `json:"use_of_funds" yaml:"use_of_funds" validate:"required"`
	CurrentMRR            float64 `json:"current_mrr" yaml:"current_mrr"`
	ARR                   float64 `json:"arr" yaml:"arr"`
	BurnRate              float64 `json:"burn_rate" yaml:"burn_rate" validate:"required"`
	RunwayMonths          float64 `json:"runway_months" yaml:"runway_months" validate:"required"`
	GrossMargin           float64 `json:"gross_margin" yaml:"gross_margin"`
	OperatingMargin       float64 `json:"operating_margin,omitempty" yaml:"operating_margin"`
	CAC                   float64 `json:"cac" yaml:"cac" validate:"required"`
	LTV                   float64 `json:"ltv" yaml:"ltv" validate:"required"`
	RevenueStreams        string  `json:"revenue_streams,omitempty" yaml:"revenue_streams"`
	RevenueProjection1Y   float64 `json:"revenue_projection_1y,omitempty" yaml:"revenue_projection_1y"`
	RevenueProjection3Y   float64 `json:"revenue_projection_3y,omitempty" yaml:"revenue_projection_3y"`
	ProfitabilityTimeline string  `json:"profitability_timeline,omitempty" yaml:"profitability_timeline"`

	Competitors          string  `json:"competitors" yaml:"competitors" validate:"required"`
	CompetitiveAdvantage string  `json:"competitive_advantage" yaml:"competitive_advantage" validate:"required"`
	MarketGrowth         string  `json:"market_growth,omitempty" yaml:"market_growth"`
	CustomerAcquisition  string  `json:"customer_acquisition" yaml:"customer_acquisition" validate:"required"`
	CurrentCustomers     int     `json:"current_customers" yaml:"current_customers"`
	MonthlyGrowthRate    float64 `json:"monthly_growth_rate" yaml:"monthly_growth_rate"`
	ChurnRate            float64 `json:"churn_rate" yaml:"churn_rate"`

	LegalRisks      string `json:"legal_risks,omitempty" yaml:"legal_risks"`
	RegulatoryRisks string `json:"regulatory_risks,omitempty" yaml:"regulatory_risks"`
	OtherRisks      string `json:"other_risks" yaml:"other_risks" validate:"required"`
	ExitStrategy    string `json:"exit_strategy,omitempty" yaml:"exit_strategy"`

	UploadedDocs map[DocSlot]string `json:"uploaded_docs,omitempty" yaml:"uploaded_docs"`
}

// Session carries the per-submission mode and credential. It is passed
// explicitly through the pipeline and never stored.
type Session struct {
	Mode       Mode
	Credential string
}

func (s Session) String() string {
	cred := "unset"
	if s.Credential != "" {
		cred = "redacted"
	}
	return fmt.Sprintf("mode=%s credential=%s", s.Mode, cred)
}

// Clone returns a copy that shares no mutable state with p.
func (p Proposal) Clone() Proposal {
	out := p
	if p.UploadedDocs != nil {
		out.UploadedDocs = make(map[DocSlot]string, len(p.UploadedDocs))
		for k, v := range p.UploadedDocs {
			out.UploadedDocs[k] = v
		}
	}
	return out
}
