package services

import (
	"strings"

	"studio-insights/models"
	"studio-insights/utils"
)

var expirationLogHeaders = []string{
	"firstName", "lastName", "email", "membershipName", "endDate", "status", "homeLocation",
}

// isNewClient accepts a true flag or a label starting with "new" ("New",
// "New Member"). "Not New" and "Renewal" are not new.
func isNewClient(r models.Record) bool {
	if Flag(r, "isNew") {
		return true
	}
	s := strings.ToLower(TextOr(r, "", "isNew"))
	return s == "new" || strings.HasPrefix(s, "new ")
}

func isConvertedClient(r models.Record) bool {
	return Flag(r, "conversionStatus", "converted")
}

func isRetainedClient(r models.Record) bool {
	return Flag(r, "retentionStatus", "retained")
}

func isConvertedLead(r models.Record) bool {
	if Flag(r, "conversionStatus", "converted") {
		return true
	}
	return strings.EqualFold(TextOr(r, "", "stage"), "converted")
}

func isTrialCompleted(r models.Record) bool {
	if Flag(r, "trialCompleted") {
		return true
	}
	return strings.Contains(strings.ToLower(TextOr(r, "", "stage")), "trial completed")
}

// ClientCohort summarises conversion and retention for a set of clients.
type ClientCohort struct {
	Key       string
	Clients   int
	New       int
	Converted int
	Retained  int
	TotalLTV  float64
}

func (c ClientCohort) ConversionRate() float64 { return ratio(float64(c.Converted), float64(c.Clients)) }
func (c ClientCohort) RetentionRate() float64  { return ratio(float64(c.Retained), float64(c.Clients)) }
func (c ClientCohort) AverageLTV() float64     { return safeDiv(c.TotalLTV, float64(c.Clients)) }

func cohortOf(key string, records []models.Record) ClientCohort {
	c := ClientCohort{Key: key, Clients: len(records)}
	for _, r := range records {
		if isNewClient(r) {
			c.New++
		}
		if isConvertedClient(r) {
			c.Converted++
		}
		if isRetainedClient(r) {
			c.Retained++
		}
		c.TotalLTV += Num(r, "ltv")
	}
	return c
}

func clientRetention(pc *pageContext) {
	clients := pc.data(models.DatasetNewClients)
	all := cohortOf(AllLocations, clients)

	pc.addMetrics("Client Retention",
		NamedValue{"Total Clients", all.Clients},
		NamedValue{"New Members", all.New},
		NamedValue{"Converted", all.Converted},
		NamedValue{"Retained", all.Retained},
		NamedValue{"Conversion Rate", utils.Round2(all.ConversionRate())},
		NamedValue{"Retention Rate", utils.Round2(all.RetentionRate())},
		NamedValue{"Average LTV", utils.Round2(all.AverageLTV())},
	)
	if !pc.wantTables() {
		return
	}

	byTrainer := GroupByFunc(clients, func(r models.Record) string { return Text(r, "trainerName", "teacherName") })
	cohorts := make([]ClientCohort, 0, byTrainer.Len())
	for _, k := range byTrainer.Keys() {
		cohorts = append(cohorts, cohortOf(k, byTrainer.Get(k)))
	}
	sortDesc(cohorts, func(c ClientCohort) float64 { return float64(c.Converted) })

	rows := make([][]string, 0, len(cohorts))
	for _, c := range cohorts {
		rows = append(rows, []string{
			c.Key,
			count(c.Clients),
			count(c.Converted),
			count(c.Retained),
			num(c.ConversionRate()),
			num(c.RetentionRate()),
			num(c.AverageLTV()),
		})
	}
	pc.addSummary("Conversion by Trainer", "Trainers",
		[]string{"Trainer", "Clients", "Converted", "Retained", "Conversion Rate", "Retention Rate", "Avg LTV"},
		rows, len(clients))

	pc.addSummary("Clients by Membership", "Memberships",
		[]string{"Membership", "Clients", "Share %"},
		countBy(clients, func(r models.Record) string { return Text(r, "membershipUsed", "membershipName") }),
		len(clients))
}

func leads(pc *pageContext) {
	recs := pc.data(models.DatasetLeads)

	if pc.wantMetrics() {
		converted, trials := 0, 0
		var ltv float64
		for _, r := range recs {
			if isConvertedLead(r) {
				converted++
			}
			if isTrialCompleted(r) {
				trials++
			}
			ltv += Num(r, "ltv")
		}
		pc.addMetrics("Leads",
			NamedValue{"Total Leads", len(recs)},
			NamedValue{"Converted Leads", converted},
			NamedValue{"Conversion Rate", utils.Round2(ratio(float64(converted), float64(len(recs))))},
			NamedValue{"Trials Completed", trials},
			NamedValue{"Average LTV", utils.Round2(safeDiv(ltv, float64(len(recs))))},
		)
	}
	if !pc.wantTables() {
		return
	}

	funnel := func(title, subTab, header string, label func(models.Record) string) {
		groups := GroupByFunc(recs, label)
		type entry struct {
			key             string
			n, conv, trials int
		}
		entries := make([]entry, 0, groups.Len())
		for _, k := range groups.Keys() {
			e := entry{key: k}
			for _, r := range groups.Get(k) {
				e.n++
				if isConvertedLead(r) {
					e.conv++
				}
				if isTrialCompleted(r) {
					e.trials++
				}
			}
			entries = append(entries, e)
		}
		sortDesc(entries, func(e entry) float64 { return float64(e.n) })

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.key,
				count(e.n),
				count(e.trials),
				count(e.conv),
				num(ratio(float64(e.conv), float64(e.n))),
			})
		}
		pc.addSummary(title, subTab,
			[]string{header, "Leads", "Trials", "Converted", "Conversion Rate"}, rows, len(recs))
	}

	funnel("Leads by Source", "Sources", "Source", func(r models.Record) string { return Text(r, "source", "leadSource") })
	funnel("Leads by Stage", "Stages", "Stage", func(r models.Record) string { return Text(r, "stage") })
	funnel("Leads by Associate", "Associates", "Associate", func(r models.Record) string { return Text(r, "associate", "assignedTo") })
}

func expirations(pc *pageContext) {
	recs := pc.data(models.DatasetExpirations)

	if pc.wantMetrics() {
		byStatus := GroupByFunc(recs, func(r models.Record) string {
			return strings.ToLower(Text(r, "status"))
		})
		pc.addMetrics("Expirations",
			NamedValue{"Total Expirations", len(recs)},
			NamedValue{"Active", len(byStatus.Get("active"))},
			NamedValue{"Churned", len(byStatus.Get("churned"))},
			NamedValue{"Frozen", len(byStatus.Get("frozen"))},
		)
	}
	if !pc.wantTables() {
		return
	}

	pc.addSummary("Expirations by Membership", "Memberships",
		[]string{"Membership", "Expirations", "Share %"},
		countBy(recs, func(r models.Record) string { return Text(r, "membershipName") }), len(recs))
	pc.addSummary("Expirations by Status", "Status",
		[]string{"Status", "Expirations", "Share %"},
		countBy(recs, func(r models.Record) string { return Text(r, "status") }), len(recs))
	pc.addRaw("Expiration Log", "Log", recs, expirationLogHeaders)
}
