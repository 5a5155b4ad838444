// Package e2e runs the full ingestion-to-answer pipeline against a fixture
// corpus with known signature phrases.
package e2e

import (
	"fmt"
	"strings"
)

// FixtureDocument is one document in the e2e corpus. Each carries a unique
// signature phrase so questions can assert the right document was retrieved.
type FixtureDocument struct {
	Name    string
	Title   string
	Content string
}

// QuestionCase pairs a question with the document names whose content
// answers it. At least one of ExpectedDocs must appear among the retrieved
// passages.
type QuestionCase struct {
	Question     string
	ExpectedDocs []string
	Description  string
}

// Corpus is the fixture document set plus its question cases.
type Corpus struct {
	Documents []FixtureDocument
	Questions []QuestionCase
}

var topics = []struct {
	title   string
	content string
}{
	{"Expense Policy", "Employees may expense travel and meals. Expense reports for travel reimbursement must be filed within thirty days with itemized receipts attached."},
	{"Vacation Policy", "Full-time staff accrue twenty days of paid vacation per year. Vacation accrual paid leave requests go through the scheduling portal."},
	{"Remote Work", "Staff may work remotely up to three days per week. Remote work arrangements hybrid schedule require manager approval once per quarter."},
	{"Security Training", "All engineers complete annual security awareness training. Security awareness training phishing modules are assigned every January."},
	{"Incident Process", "Production incidents page the on-call engineer. Incident severity levels on-call escalation are defined from SEV1 to SEV4."},
	{"Deployment Guide", "Services deploy through the release pipeline. Release pipeline canary deployment promotes builds from staging to production."},
	{"Database Backups", "Databases are backed up nightly to object storage. Nightly database backup retention keeps snapshots for ninety days."},
	{"Access Requests", "Production access requires an approved ticket. Production access request ticket approvals expire after twelve hours."},
	{"Code Review", "Every change needs one approving review before merge. Code review approval merge rules are enforced on the main branch."},
	{"Branching Model", "Feature work happens on short-lived branches. Short-lived feature branches trunk merge daily to avoid drift."},
	{"Logging Standard", "Services emit structured JSON logs. Structured JSON logging fields include request identifiers and latency."},
	{"Metrics Dashboard", "Service dashboards track latency and error rate. Latency error rate dashboard panels refresh every fifteen seconds."},
	{"API Conventions", "Public endpoints are versioned under a path prefix. Versioned endpoint path prefix changes require a deprecation notice."},
	{"Rate Limits", "Clients are limited to one hundred requests per minute. Request rate limit quota violations return status four twenty nine."},
	{"Authentication", "Internal services authenticate with short-lived tokens. Short-lived service tokens rotation happens automatically every hour."},
	{"Secrets Handling", "Credentials are stored in the secrets vault. Secrets vault credential storage forbids plaintext keys in config files."},
	{"Data Retention", "Customer records are retained for seven years. Customer record retention schedule purges expired data monthly."},
	{"Onboarding Checklist", "New hires receive laptops on their first day. New hire laptop provisioning checklist covers accounts and badge access."},
	{"Travel Booking", "Business travel is booked through the agency portal. Agency portal business travel bookings need cost-center codes."},
	{"Procurement", "Purchases above five hundred dollars need a purchase order. Purchase order procurement approval routes to the budget owner."},
	{"Holiday Schedule", "The office closes for eleven public holidays. Public holiday office closure dates are published each December."},
	{"Performance Review", "Reviews run twice a year in spring and autumn. Twice-yearly performance review cycle collects peer feedback first."},
	{"Meeting Rooms", "Conference rooms are booked through the calendar system. Conference room calendar booking releases the room after ten idle minutes."},
	{"Printer Setup", "Office printers use badge release. Badge release printer queue holds jobs for twenty-four hours."},
	{"VPN Access", "Remote connections go through the company VPN. Company VPN connection profiles are issued by the help desk."},
	{"Password Rules", "Passwords must be at least fourteen characters. Fourteen character password minimum applies to all internal accounts."},
	{"Laptop Encryption", "All laptops use full-disk encryption. Full-disk laptop encryption keys are escrowed with the security team."},
	{"Open Source Use", "Third-party libraries need license review. Third-party library license review blocks copyleft licenses in shipped code."},
	{"Postmortem Rules", "SEV1 incidents require a written postmortem. Written postmortem document blameless review is due within five days."},
	{"Capacity Planning", "Teams forecast capacity each quarter. Quarterly capacity forecast planning feeds the hardware budget."},
	{"Schema Changes", "Schema migrations must be backward compatible. Backward compatible schema migration steps ship separately from code."},
	{"Feature Flags", "Risky changes ship behind feature flags. Feature flag gradual rollout percentages start at one percent."},
	{"Alert Routing", "Alerts route by service ownership tags. Service ownership alert routing tags live in the catalog file."},
	{"Status Page", "Customer-facing outages update the status page. Public status page outage updates post within fifteen minutes."},
	{"Sandbox Accounts", "Developers get isolated sandbox accounts. Isolated sandbox account quotas reset at the start of each month."},
	{"Artifact Registry", "Build artifacts publish to the internal registry. Internal artifact registry retention deletes unused images after sixty days."},
	{"Support Tiers", "Support requests triage into three tiers. Three-tier support triage targets first response within four hours."},
	{"Escalation Path", "Unresolved tickets escalate to the duty manager. Duty manager ticket escalation happens after two business days."},
	{"Training Budget", "Each engineer has an annual training budget. Annual training budget conference allowance covers one event per year."},
	{"Equipment Refresh", "Laptops are refreshed every three years. Three-year laptop refresh cycle swaps hardware during review periods."},
}

// BuildCorpus returns the fixture documents and the question cases that
// target them.
func BuildCorpus() *Corpus {
	docs := make([]FixtureDocument, 0, len(topics))
	for i, t := range topics {
		docs = append(docs, FixtureDocument{
			Name:    fmt.Sprintf("doc-%03d", i+1),
			Title:   t.title,
			Content: t.content,
		})
	}
	return &Corpus{
		Documents: docs,
		Questions: buildQuestionCases(docs),
	}
}

var questionPhrases = []string{
	"expense reports travel reimbursement",
	"vacation accrual paid leave",
	"remote work arrangements hybrid",
	"security awareness training phishing",
	"incident severity levels on-call",
	"release pipeline canary deployment",
	"nightly database backup retention",
	"production access request ticket",
	"code review approval merge",
	"structured JSON logging fields",
	"request rate limit quota",
	"short-lived service tokens rotation",
	"secrets vault credential storage",
	"customer record retention schedule",
	"new hire laptop provisioning",
	"purchase order procurement approval",
	"twice-yearly performance review cycle",
	"company VPN connection profiles",
	"fourteen character password minimum",
	"full-disk laptop encryption keys",
	"third-party library license review",
	"written postmortem document blameless",
	"backward compatible schema migration",
	"feature flag gradual rollout",
	"public status page outage",
	"internal artifact registry retention",
	"three-tier support triage",
	"annual training budget conference",
}

func buildQuestionCases(docs []FixtureDocument) []QuestionCase {
	var cases []QuestionCase
	used := make(map[string]bool)
	for _, phrase := range questionPhrases {
		for _, d := range docs {
			if !used[d.Name] && containsAllWords(d, phrase) {
				cases = append(cases, QuestionCase{
					Question:     phrase,
					ExpectedDocs: []string{d.Name},
					Description:  fmt.Sprintf("question %q should retrieve %s", phrase, d.Name),
				})
				used[d.Name] = true
				break
			}
		}
	}
	return cases
}

func containsAllWords(d FixtureDocument, phrase string) bool {
	text := strings.ToLower(d.Title + " " + d.Content)
	for _, w := range strings.Fields(strings.ToLower(phrase)) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
